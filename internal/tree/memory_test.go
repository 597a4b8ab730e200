package tree

import "testing"

func TestMemoryProviderOwnsOnlyItsNodes(t *testing.T) {
	root := NewID()
	folder := NewID()
	tmpl := NewID()
	field := NewID()

	m := NewMemoryProvider("native")
	m.AddNode(MemoryNode{Definition: ItemDefinition{ID: root, Name: "sitecore"}})
	m.AddNode(MemoryNode{
		Definition: ItemDefinition{ID: folder, Name: "People", TemplateID: tmpl},
		ParentID:   root,
		Fields:     map[Language]map[ID]string{"en": {field: "People folder"}},
	})

	cc := &CallContext{Languages: []Language{"en", "da"}}

	def, ok := m.GetItemDefinition(cc, folder).Get()
	if !ok || def.Name != "People" || !def.Cacheable {
		t.Fatalf("unexpected definition: %+v", def)
	}
	if res := m.GetItemDefinition(cc, NewID()); res.Handled() {
		t.Fatalf("unknown ids must be delegated")
	}

	children, ok := m.GetChildIDs(cc, &ItemDefinition{ID: root}).Get()
	if !ok || len(children) != 1 || children[0] != folder {
		t.Fatalf("unexpected children: %v", children)
	}
	if res := m.GetChildIDs(cc, &ItemDefinition{ID: folder}); res.Status != StatusEmpty {
		t.Fatalf("leaf node should report authoritative empty, got %s", res.Status)
	}

	parent, ok := m.GetParentID(cc, &ItemDefinition{ID: folder}).Get()
	if !ok || parent != root {
		t.Fatalf("unexpected parent: %v", parent)
	}
	if res := m.GetParentID(cc, &ItemDefinition{ID: root}); res.Status != StatusEmpty {
		t.Fatalf("root parent should be unknown, got %s", res.Status)
	}

	fields, ok := m.GetItemFields(cc, &ItemDefinition{ID: folder}, VersionURI{Language: "en", Version: 1}).Get()
	if !ok {
		t.Fatalf("expected fields")
	}
	if v, _ := fields.Get(field); v != "People folder" {
		t.Fatalf("unexpected field value %q", v)
	}

	versions, ok := m.GetItemVersions(cc, &ItemDefinition{ID: folder}).Get()
	if !ok || len(versions) != 2 {
		t.Fatalf("expected one version per language, got %v", versions)
	}
}

func TestMemoryProviderSave(t *testing.T) {
	id := NewID()
	field := NewID()
	m := NewMemoryProvider("")
	m.AddNode(MemoryNode{Definition: ItemDefinition{ID: id, Name: "n"}})

	cc := &CallContext{}
	ok, handled := m.SaveItem(cc, &ItemDefinition{ID: id}, &ItemChanges{
		FieldChanges: []FieldChange{{FieldID: field, Value: "v"}},
	}).Get()
	if !handled || !ok {
		t.Fatalf("save should succeed")
	}
	fields, _ := m.GetItemFields(cc, &ItemDefinition{ID: id}, VersionURI{Language: "en"}).Get()
	if v, _ := fields.Get(field); v != "v" {
		t.Fatalf("saved value not readable, got %q", v)
	}
}

func TestFieldListSkipsEmptyValues(t *testing.T) {
	a, b := NewID(), NewID()
	l := NewFieldList()
	l.Add(a, "x")
	l.Add(b, "")
	l.Add(a, "y")
	if l.Len() != 1 {
		t.Fatalf("expected 1 field, got %d", l.Len())
	}
	if v, _ := l.Get(a); v != "y" {
		t.Fatalf("expected overwrite, got %q", v)
	}
	if _, ok := l.Get(b); ok {
		t.Fatalf("empty values must be omitted")
	}
}

func TestParseIDAcceptsBraces(t *testing.T) {
	id := NewID()
	got, err := ParseID("{" + id.String() + "}")
	if err != nil || got != id {
		t.Fatalf("ParseID failed: %v %v", got, err)
	}
}
