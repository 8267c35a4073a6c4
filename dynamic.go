package hxrt

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Dynamic is the type-erased "any value" box used in untyped positions.
//
// Besides the payload it carries two pieces of metadata that survive being
// re-boxed: the allocation identity of reference-like payloads (0 otherwise),
// which drives reference equality, and an optional compiler-assigned type id
// used for class/enum checks that type erasure alone cannot answer.
type Dynamic struct {
	value     interface{}
	typeName  string
	identity  uintptr
	typeID    uint32
	hasTypeID bool
}

// Null returns the empty Dynamic
func Null() Dynamic {
	return Dynamic{typeName: "null"}
}

// Box wraps v. Boxing a Dynamic returns it unchanged so identity and type id
// are preserved; nil and null handles box to Null.
// Identity is recorded automatically for Identifiable payloads (Ref, Sequence,
// Object) and for Go pointers, maps and channels.
func Box(v interface{}) Dynamic {
	if d, ok := v.(Dynamic); ok {
		return d
	}
	if isNilValue(v) {
		return Null()
	}
	return Dynamic{
		value:    v,
		typeName: typeNameOf(v),
		identity: identityOf(v),
	}
}

// BoxWithIdentity boxes a reference-like value, recording its identity
func BoxWithIdentity(v Identifiable) Dynamic {
	if isNilValue(v) || v.Identity() == 0 {
		return Null()
	}
	return Dynamic{
		value:    v,
		typeName: typeNameOf(v),
		identity: v.Identity(),
	}
}

// BoxWithTypeID boxes v and attaches a stable type id
func BoxWithTypeID(v interface{}, typeID uint32) Dynamic {
	d := Box(v)
	if d.IsNull() {
		return d
	}
	d.typeID = typeID
	d.hasTypeID = true
	return d
}

// BoxWithIdentityAndTypeID boxes a reference-like value with both identity and type id
func BoxWithIdentityAndTypeID(v Identifiable, typeID uint32) Dynamic {
	d := BoxWithIdentity(v)
	if d.IsNull() {
		return d
	}
	d.typeID = typeID
	d.hasTypeID = true
	return d
}

// IsNull reports whether the box is empty
func (d Dynamic) IsNull() bool {
	return d.value == nil
}

// Value returns the raw payload (nil for Null)
func (d Dynamic) Value() interface{} {
	return d.value
}

// TypeName returns the payload's Go type name, "null" when empty
func (d Dynamic) TypeName() string {
	if d.typeName == "" {
		return "null"
	}
	return d.typeName
}

// Identity returns the allocation identity, 0 for non-reference payloads or null
func (d Dynamic) Identity() uintptr {
	return d.identity
}

// TypeID returns the compiler-assigned type id if one was attached
func (d Dynamic) TypeID() (uint32, bool) {
	return d.typeID, d.hasTypeID
}

// As returns the payload as T without taking it out of the box
func As[T any](d Dynamic) (T, bool) {
	v, ok := d.value.(T)
	return v, ok
}

// Downcast takes the payload as T. On mismatch the original Dynamic is handed
// back so the caller can rethrow or try another type.
func Downcast[T any](d Dynamic) (T, Dynamic, bool) {
	if v, ok := d.value.(T); ok {
		return v, Null(), true
	}
	var zero T
	return zero, d, false
}

// MustDowncast is Downcast that raises TypeMismatch on failure
func MustDowncast[T any](d Dynamic) T {
	v, ok := d.value.(T)
	if !ok {
		var zero T
		fault(newError(TypeMismatch, "cannot use %s as %T", d.TypeName(), zero))
	}
	return v
}

// Option is the boxed form of a nullable primitive
type Option[T any] struct {
	value T
	ok    bool
}

// Some wraps a present value
func Some[T any](v T) Option[T] {
	return Option[T]{value: v, ok: true}
}

// None returns an absent value
func None[T any]() Option[T] {
	return Option[T]{}
}

// Get returns the wrapped value and whether it is present
func (o Option[T]) Get() (T, bool) {
	return o.value, o.ok
}

func (o Option[T]) optionalValue() (interface{}, bool) {
	return o.value, o.ok
}

type optional interface {
	optionalValue() (interface{}, bool)
}

// displayList is implemented by sequence handles so any instantiation can be
// printed element by element
type displayList interface {
	displayItems() []interface{}
}

// String renders the value the way the source language prints it.
// Unknown payloads render as a stable <Dynamic:TYPE> marker, never an address.
func (d Dynamic) String() string {
	if d.IsNull() {
		return "null"
	}
	if s, ok := primitiveText(d.value); ok {
		return s
	}

	switch v := d.value.(type) {
	case optional:
		inner, ok := v.optionalValue()
		if !ok {
			return "null"
		}
		return Box(inner).String()
	case displayList:
		return "[" + joinDisplay(v.displayItems(), ",") + "]"
	case error:
		return v.Error()
	}

	rv := reflect.ValueOf(d.value)
	switch rv.Kind() {
	case reflect.Ptr:
		// Pointer to a primitive is the Go spelling of a nullable primitive
		if s, ok := primitiveText(rv.Elem().Interface()); ok {
			return s
		}
	case reflect.Slice, reflect.Array:
		items := make([]interface{}, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return "[" + joinDisplay(items, ",") + "]"
	}

	return fmt.Sprintf("<Dynamic:%s>", d.typeName)
}

// Equal compares two dynamic values: nulls are equal to each other only,
// primitives of the same kind compare by value, reference-like values compare
// by identity, everything else is unequal.
func Equal(a, b Dynamic) bool {
	if a.IsNull() && b.IsNull() {
		return true
	}
	if a.IsNull() || b.IsNull() {
		return false
	}

	pa, okA := primitiveOf(a.value)
	pb, okB := primitiveOf(b.value)
	if okA && okB {
		return pa.equal(pb)
	}

	if a.identity != 0 && b.identity != 0 {
		return a.identity == b.identity
	}
	return false
}

func joinDisplay(items []interface{}, sep string) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = Box(item).String()
	}
	return strings.Join(parts, sep)
}

// primKind groups Go kinds into the source language's primitive kinds
type primKind int

const (
	primString primKind = iota + 1
	primBool
	primInt
	primUint
	primFloat
)

type primitive struct {
	kind primKind
	s    string
	b    bool
	i    int64
	u    uint64
	f    float64
}

func primitiveOf(v interface{}) (primitive, bool) {
	if v == nil {
		return primitive{}, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return primitive{kind: primString, s: rv.String()}, true
	case reflect.Bool:
		return primitive{kind: primBool, b: rv.Bool()}, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return primitive{kind: primInt, i: rv.Int()}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return primitive{kind: primUint, u: rv.Uint()}, true
	case reflect.Float32, reflect.Float64:
		return primitive{kind: primFloat, f: rv.Float()}, true
	}
	return primitive{}, false
}

func (p primitive) equal(o primitive) bool {
	switch {
	case p.kind == primInt && o.kind == primUint:
		return p.i >= 0 && uint64(p.i) == o.u
	case p.kind == primUint && o.kind == primInt:
		return o.i >= 0 && uint64(o.i) == p.u
	case p.kind != o.kind:
		return false
	}
	switch p.kind {
	case primString:
		return p.s == o.s
	case primBool:
		return p.b == o.b
	case primInt:
		return p.i == o.i
	case primUint:
		return p.u == o.u
	case primFloat:
		return p.f == o.f
	}
	return false
}

func (p primitive) text() string {
	switch p.kind {
	case primString:
		return p.s
	case primBool:
		return strconv.FormatBool(p.b)
	case primInt:
		return strconv.FormatInt(p.i, 10)
	case primUint:
		return strconv.FormatUint(p.u, 10)
	case primFloat:
		return strconv.FormatFloat(p.f, 'f', -1, 64)
	}
	return ""
}

func primitiveText(v interface{}) (string, bool) {
	p, ok := primitiveOf(v)
	if !ok {
		return "", false
	}
	return p.text(), true
}

func typeNameOf(v interface{}) string {
	if v == nil {
		return "null"
	}
	return reflect.TypeOf(v).String()
}

func identityOf(v interface{}) uintptr {
	if id, ok := v.(Identifiable); ok {
		return id.Identity()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		return rv.Pointer()
	}
	return 0
}

func isNilValue(v interface{}) bool {
	if v == nil {
		return true
	}
	if h, ok := v.(handle); ok {
		if _, isDyn := v.(Dynamic); !isDyn {
			return h.IsNull()
		}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}

// handle is implemented by nullable reference handles (Ref, Sequence, Object)
type handle interface {
	IsNull() bool
}
