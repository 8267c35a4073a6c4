package hxrt

// objectFields keeps field insertion order so FieldNames is stable
type objectFields struct {
	names  []string
	values map[string]Dynamic
}

// Object is a string-keyed record with reference semantics, used for anonymous
// structures and dynamically built objects. Copies alias the same fields.
type Object struct {
	ref Ref[objectFields]
}

// NewObject allocates an empty object
func NewObject() Object {
	return Object{ref: NewRef(objectFields{values: make(map[string]Dynamic)})}
}

// IsNull reports whether the handle points at nothing
func (o Object) IsNull() bool {
	return o.ref.IsNull()
}

// Identity is the address of the backing cell
func (o Object) Identity() uintptr {
	return o.ref.Identity()
}

// Get returns the field value and whether it exists
func (o Object) Get(name string) (Dynamic, bool) {
	var (
		v  Dynamic
		ok bool
	)
	o.ref.Read(func(f objectFields) {
		v, ok = f.values[name]
	})
	return v, ok
}

// Set creates or replaces a field
func (o Object) Set(name string, value interface{}) {
	d := Box(value)
	o.ref.Write(func(f *objectFields) {
		if _, exists := f.values[name]; !exists {
			f.names = append(f.names, name)
		}
		f.values[name] = d
	})
}

// Delete removes a field, reporting whether it was present
func (o Object) Delete(name string) bool {
	removed := false
	o.ref.Write(func(f *objectFields) {
		if _, exists := f.values[name]; !exists {
			return
		}
		delete(f.values, name)
		for i, n := range f.names {
			if n == name {
				f.names = append(f.names[:i], f.names[i+1:]...)
				break
			}
		}
		removed = true
	})
	return removed
}

// Names returns the field names in insertion order
func (o Object) Names() []string {
	var names []string
	o.ref.Read(func(f objectFields) {
		names = make([]string, len(f.names))
		copy(names, f.names)
	})
	return names
}

// indexable is implemented by every Sequence instantiation
type indexable interface {
	Len() int
	dynamicAt(index int) (Dynamic, bool)
}

// FieldGet reads a field from a dynamic receiver. Missing fields and
// receivers that are not objects yield null.
func FieldGet(obj Dynamic, name string) Dynamic {
	if o, ok := As[Object](obj); ok && !o.IsNull() {
		if v, found := o.Get(name); found {
			return v
		}
	}
	return Null()
}

// FieldSet writes a field on a dynamic receiver, raising DomainError when the
// receiver is not an object
func FieldSet(obj Dynamic, name string, value interface{}) {
	o, ok := As[Object](obj)
	if !ok || o.IsNull() {
		fault(NewDomainError("Dynamic field write on unsupported receiver (field: %s)", name))
	}
	o.Set(name, value)
}

// FieldNames lists the fields of an object receiver, empty for anything else
func FieldNames(obj Dynamic) []string {
	if o, ok := As[Object](obj); ok && !o.IsNull() {
		return o.Names()
	}
	return []string{}
}

// IndexGet implements obj[index] for a dynamic receiver. Negative or out of
// range indices yield null.
func IndexGet(obj Dynamic, index int) Dynamic {
	if obj.IsNull() || index < 0 {
		return Null()
	}
	if s, ok := obj.value.(indexable); ok {
		if v, found := s.dynamicAt(index); found {
			return v
		}
	}
	return Null()
}

// IndexGetString implements obj["key"]. "length" on a sequence is its length;
// any other key is a field read.
func IndexGetString(obj Dynamic, key string) Dynamic {
	if obj.IsNull() {
		return Null()
	}
	if key == "length" {
		if s, ok := obj.value.(indexable); ok {
			return Box(s.Len())
		}
	}
	return FieldGet(obj, key)
}

// IndexGetDynamic dispatches on the dynamic index type
func IndexGetDynamic(obj Dynamic, index Dynamic) Dynamic {
	p, ok := primitiveOf(index.value)
	if !ok {
		return Null()
	}
	switch p.kind {
	case primInt:
		return IndexGet(obj, int(p.i))
	case primUint:
		return IndexGet(obj, int(p.u))
	case primString:
		return IndexGetString(obj, p.s)
	}
	return Null()
}
