package tree

// FieldList 是按插入顺序排列的字段 ID → 值映射，空值不会被写入。
type FieldList struct {
	order  []ID
	values map[ID]string
}

// NewFieldList 创建空字段集合。
func NewFieldList() *FieldList {
	return &FieldList{values: make(map[ID]string)}
}

// Add 写入字段值；空字符串被忽略，重复 ID 覆盖旧值但保留原位置。
func (l *FieldList) Add(id ID, value string) {
	if value == "" {
		return
	}
	if l.values == nil {
		l.values = make(map[ID]string)
	}
	if _, exists := l.values[id]; !exists {
		l.order = append(l.order, id)
	}
	l.values[id] = value
}

// Get 返回字段值。
func (l *FieldList) Get(id ID) (string, bool) {
	if l == nil {
		return "", false
	}
	v, ok := l.values[id]
	return v, ok
}

// Len 返回字段数量。
func (l *FieldList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.order)
}

// IDs 返回按插入顺序排列的字段 ID。
func (l *FieldList) IDs() []ID {
	if l == nil {
		return nil
	}
	return append([]ID(nil), l.order...)
}

// Each 依序遍历字段。
func (l *FieldList) Each(fn func(id ID, value string)) {
	if l == nil {
		return
	}
	for _, id := range l.order {
		fn(id, l.values[id])
	}
}
