// Package remote 是远端实体 API 的类型化客户端：批量读取、按键查找与更新。
package remote

// Person 是远端存储拥有的实体记录，Email 为唯一且稳定的记录键。
type Person struct {
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Email       string `json:"email"`
	Description string `json:"description,omitempty"`
	JobTitle    string `json:"jobTitle,omitempty"`
}

// Key 返回记录键。
func (p Person) Key() string {
	return p.Email
}
