package notion

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Option is a select, status or multi-select choice.
type Option struct {
	Name string `json:"name"`
}

// DateValue is a date or date range.
type DateValue struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

// String renders the date, or the range as "start → end".
func (d *DateValue) String() string {
	if d == nil {
		return ""
	}
	if d.End != "" {
		return d.Start + " → " + d.End
	}
	return d.Start
}

// Formula is the computed value of a formula property.
type Formula struct {
	Type    string     `json:"type"`
	String  *string    `json:"string,omitempty"`
	Number  *float64   `json:"number,omitempty"`
	Boolean *bool      `json:"boolean,omitempty"`
	Date    *DateValue `json:"date,omitempty"`
}

// Rollup is the aggregated value of a rollup property.
type Rollup struct {
	Type   string     `json:"type"`
	Number *float64   `json:"number,omitempty"`
	Date   *DateValue `json:"date,omitempty"`
	Array  []Property `json:"array,omitempty"`
}

// NamedFile is an entry of a files property.
type NamedFile struct {
	Name     string   `json:"name"`
	External *FileRef `json:"external,omitempty"`
	File     *FileRef `json:"file,omitempty"`
}

// UniqueID is an auto-incremented id such as "TASK-42".
type UniqueID struct {
	Prefix *string `json:"prefix"`
	Number int     `json:"number"`
}

// Property is the value of one page property.
type Property struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	Title          []RichText `json:"title,omitempty"`
	RichText       []RichText `json:"rich_text,omitempty"`
	Number         *float64   `json:"number,omitempty"`
	Select         *Option    `json:"select,omitempty"`
	Status         *Option    `json:"status,omitempty"`
	MultiSelect    []Option   `json:"multi_select,omitempty"`
	Date           *DateValue `json:"date,omitempty"`
	Checkbox       *bool      `json:"checkbox,omitempty"`
	People         []User     `json:"people,omitempty"`
	Relation       []struct {
		ID string `json:"id"`
	} `json:"relation,omitempty"`
	Formula        *Formula    `json:"formula,omitempty"`
	Rollup         *Rollup     `json:"rollup,omitempty"`
	URL            *string     `json:"url,omitempty"`
	Email          *string     `json:"email,omitempty"`
	PhoneNumber    *string     `json:"phone_number,omitempty"`
	Files          []NamedFile `json:"files,omitempty"`
	CreatedTime    *string     `json:"created_time,omitempty"`
	LastEditedTime *string     `json:"last_edited_time,omitempty"`
	CreatedBy      *User       `json:"created_by,omitempty"`
	LastEditedBy   *User       `json:"last_edited_by,omitempty"`
	UniqueID       *UniqueID   `json:"unique_id,omitempty"`
}

// DecodeProperties decodes page property values. Entries that fail to decode
// are skipped.
func DecodeProperties(raw map[string]json.RawMessage) map[string]Property {
	props := make(map[string]Property, len(raw))
	for name, msg := range raw {
		var p Property
		if err := json.Unmarshal(msg, &p); err != nil {
			continue
		}
		props[name] = p
	}
	return props
}

// DecodeSchema decodes database column definitions into name -> type.
func DecodeSchema(raw map[string]json.RawMessage) map[string]string {
	schema := make(map[string]string, len(raw))
	for name, msg := range raw {
		var p SchemaProperty
		if err := json.Unmarshal(msg, &p); err != nil {
			continue
		}
		schema[name] = p.Type
	}
	return schema
}

// ExtractTitle returns the text of the first title-typed property, or
// "Untitled".
func ExtractTitle(props map[string]Property) string {
	for _, name := range sortedNames(props) {
		p := props[name]
		if p.Type == "title" {
			if t := strings.TrimSpace(PlainText(p.Title)); t != "" {
				return t
			}
		}
	}
	return "Untitled"
}

// PropertyValue converts a property to a plain scalar or slice. Empty values
// yield nil.
func PropertyValue(p Property) any {
	switch p.Type {
	case "title":
		return nonEmpty(PlainText(p.Title))
	case "rich_text":
		return nonEmpty(PlainText(p.RichText))
	case "number":
		if p.Number == nil {
			return nil
		}
		return *p.Number
	case "select":
		if p.Select == nil {
			return nil
		}
		return p.Select.Name
	case "status":
		if p.Status == nil {
			return nil
		}
		return p.Status.Name
	case "multi_select":
		names := make([]string, 0, len(p.MultiSelect))
		for _, o := range p.MultiSelect {
			names = append(names, o.Name)
		}
		return nonEmptySlice(names)
	case "date":
		if p.Date == nil {
			return nil
		}
		return p.Date.String()
	case "checkbox":
		if p.Checkbox == nil {
			return false
		}
		return *p.Checkbox
	case "people":
		names := make([]string, 0, len(p.People))
		for _, u := range p.People {
			names = append(names, u.DisplayName())
		}
		return nonEmptySlice(names)
	case "relation":
		ids := make([]string, 0, len(p.Relation))
		for _, r := range p.Relation {
			ids = append(ids, r.ID)
		}
		return nonEmptySlice(ids)
	case "formula":
		return formulaValue(p.Formula)
	case "rollup":
		return rollupValue(p.Rollup)
	case "url":
		return derefString(p.URL)
	case "email":
		return derefString(p.Email)
	case "phone_number":
		return derefString(p.PhoneNumber)
	case "files":
		names := make([]string, 0, len(p.Files))
		for _, f := range p.Files {
			name := f.Name
			if name == "" && f.External != nil {
				name = f.External.URL
			}
			if name == "" && f.File != nil {
				name = f.File.URL
			}
			names = append(names, name)
		}
		return nonEmptySlice(names)
	case "created_time":
		return derefString(p.CreatedTime)
	case "last_edited_time":
		return derefString(p.LastEditedTime)
	case "created_by":
		if p.CreatedBy == nil {
			return nil
		}
		return p.CreatedBy.DisplayName()
	case "last_edited_by":
		if p.LastEditedBy == nil {
			return nil
		}
		return p.LastEditedBy.DisplayName()
	case "unique_id":
		if p.UniqueID == nil {
			return nil
		}
		if p.UniqueID.Prefix != nil && *p.UniqueID.Prefix != "" {
			return fmt.Sprintf("%s-%d", *p.UniqueID.Prefix, p.UniqueID.Number)
		}
		return strconv.Itoa(p.UniqueID.Number)
	default:
		return nil
	}
}

func formulaValue(f *Formula) any {
	if f == nil {
		return nil
	}
	switch f.Type {
	case "string":
		return derefString(f.String)
	case "number":
		if f.Number == nil {
			return nil
		}
		return *f.Number
	case "boolean":
		if f.Boolean == nil {
			return nil
		}
		return *f.Boolean
	case "date":
		if f.Date == nil {
			return nil
		}
		return f.Date.String()
	}
	return nil
}

func rollupValue(r *Rollup) any {
	if r == nil {
		return nil
	}
	switch r.Type {
	case "number":
		if r.Number == nil {
			return nil
		}
		return *r.Number
	case "date":
		if r.Date == nil {
			return nil
		}
		return r.Date.String()
	case "array":
		values := make([]string, 0, len(r.Array))
		for _, p := range r.Array {
			if s := FormatValue(PropertyValue(p)); s != "" {
				values = append(values, s)
			}
		}
		return nonEmptySlice(values)
	}
	return nil
}

// FormatValue renders a PropertyValue result as text.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []string:
		return strings.Join(x, ", ")
	default:
		return fmt.Sprint(x)
	}
}

// PropertyLines renders non-title properties as sorted "Name: value" lines
// and returns the plain values keyed by property name.
func PropertyLines(props map[string]Property) ([]string, map[string]any) {
	var lines []string
	values := make(map[string]any, len(props))
	for _, name := range sortedNames(props) {
		p := props[name]
		v := PropertyValue(p)
		if v == nil {
			continue
		}
		values[name] = v
		if p.Type == "title" {
			continue
		}
		if s := FormatValue(v); s != "" {
			lines = append(lines, name+": "+s)
		}
	}
	return lines, values
}

func sortedNames(props map[string]Property) []string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func nonEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nonEmptySlice(s []string) any {
	if len(s) == 0 {
		return nil
	}
	return s
}

func derefString(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
