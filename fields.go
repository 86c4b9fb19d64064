package horse

import (
	"reflect"
	"strings"
	"sync"
)

type field struct {
	name  string
	index int
}

// structInfo is the record layout of a struct type: exported fields in
// declaration order, renamed by `horse:"name"` and dropped by `horse:"-"`.
type structInfo struct {
	fields []field
	names  []string
	byName map[string]int
}

var structCache sync.Map // reflect.Type -> *structInfo

func structFields(t reflect.Type) *structInfo {
	if si, ok := structCache.Load(t); ok {
		return si.(*structInfo)
	}
	si := &structInfo{byName: make(map[string]int)}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, ok := fieldName(sf)
		if !ok {
			continue
		}
		si.byName[name] = len(si.fields)
		si.fields = append(si.fields, field{name: name, index: i})
		si.names = append(si.names, name)
	}
	actual, _ := structCache.LoadOrStore(t, si)
	return actual.(*structInfo)
}

func fieldName(sf reflect.StructField) (string, bool) {
	tag := sf.Tag.Get("horse")
	if tag == "-" {
		return "", false
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		name = sf.Name
	}
	return name, true
}
