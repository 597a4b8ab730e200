// Package projection 把远端记录映射到模板声明的字段上。映射是纯函数：
// 相同的字段名与记录总是得到相同的字符串，未声明的字段名得到空串。
package projection

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/treebridge/treebridge/internal/remote"
)

type projector func(remote.Person) string

// Field 描述一个可投影字段，Assign 为 nil 时表示派生字段，不可回写。
type Field struct {
	Name    string
	Project projector
	Assign  func(*remote.Person, string)
}

var fields = []Field{
	{
		Name:    "first name",
		Project: func(p remote.Person) string { return p.FirstName },
		Assign:  func(p *remote.Person, v string) { p.FirstName = v },
	},
	{
		Name:    "last name",
		Project: func(p remote.Person) string { return p.LastName },
		Assign:  func(p *remote.Person, v string) { p.LastName = v },
	},
	{
		Name:    "email",
		Project: func(p remote.Person) string { return p.Email },
		Assign:  func(p *remote.Person, v string) { p.Email = v },
	},
	{
		Name:    "description",
		Project: func(p remote.Person) string { return p.Description },
		Assign:  func(p *remote.Person, v string) { p.Description = v },
	},
	{
		Name:    "job title",
		Project: func(p remote.Person) string { return p.JobTitle },
		Assign:  func(p *remote.Person, v string) { p.JobTitle = v },
	},
	{Name: "title", Project: fullName},
	{Name: "menu title", Project: fullName},
	{Name: "abstract", Project: paragraph},
	{Name: "body", Project: paragraph},
	{Name: "quote", Project: func(p remote.Person) string { return "My name is " + p.FirstName }},
}

// 别名到规范字段名，大小写与分隔符差异由 Normalize 处理。
var aliases = map[string]string{
	"key":  "email",
	"role": "job title",
}

var byName = func() map[string]Field {
	m := make(map[string]Field, len(fields)+len(aliases))
	for _, f := range fields {
		m[Normalize(f.Name)] = f
	}
	for alias, target := range aliases {
		m[Normalize(alias)] = m[Normalize(target)]
	}
	return m
}()

func fullName(p remote.Person) string {
	return p.FirstName + " " + p.LastName
}

func paragraph(p remote.Person) string {
	return "<p>" + p.Description + "</p>"
}

// Normalize 将字段名规范化：NFC、大小写折叠，并去掉空格、下划线与连字符。
func Normalize(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsSpace(r) || r == '_' || r == '-' {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Lookup 返回字段名对应的投影定义。
func Lookup(name string) (Field, bool) {
	f, ok := byName[Normalize(name)]
	return f, ok
}

// Project 计算 field 在记录上的投影值，未知字段返回空串。
func Project(field string, p remote.Person) string {
	f, ok := Lookup(field)
	if !ok {
		return ""
	}
	return f.Project(p)
}

// Assign 把 value 写回记录中直接投影的属性；派生字段或未知字段返回 false。
func Assign(field string, p *remote.Person, value string) bool {
	f, ok := Lookup(field)
	if !ok || f.Assign == nil || p == nil {
		return false
	}
	f.Assign(p, value)
	return true
}

// Names 返回所有规范字段名，按声明顺序。
func Names() []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.Name)
	}
	return out
}

// ItemName 返回节点显示名 "{first} {last}"，两者皆空时退回记录键。
func ItemName(p remote.Person) string {
	name := strings.TrimSpace(norm.NFC.String(fullName(p)))
	if name == "" {
		return p.Key()
	}
	return name
}
