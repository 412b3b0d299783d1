package layout

import (
	"fmt"

	"go.bytecodealliance.org/wit"
)

// Info is the in-memory shape of a value.
type Info struct {
	FieldOffs map[string]uint32
	Size      uint32
	Align     uint32
}

// AlignTo rounds offset up to a multiple of align (a power of two).
func AlignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// Of returns the layout of t. Safe for concurrent use.
func Of(t wit.Type) Info {
	return NewCalculator().Calculate(t)
}

// Calculator caches layouts of type definitions it has seen. A Calculator is
// not safe for concurrent use.
type Calculator struct {
	cache map[*wit.TypeDef]Info
}

func NewCalculator() *Calculator {
	return &Calculator{
		cache: make(map[*wit.TypeDef]Info),
	}
}

func (c *Calculator) Calculate(t wit.Type) Info {
	switch typ := t.(type) {
	case wit.U8, wit.S8, wit.Bool:
		return Info{Size: 1, Align: 1}
	case wit.U16, wit.S16:
		return Info{Size: 2, Align: 2}
	case wit.U32, wit.S32, wit.F32, wit.Char:
		return Info{Size: 4, Align: 4}
	case wit.U64, wit.S64, wit.F64:
		return Info{Size: 8, Align: 8}
	case wit.String:
		return Info{Size: 8, Align: 4}
	case *wit.TypeDef:
		return c.calculateTypeDef(typ)
	default:
		return Info{Size: 0, Align: 1}
	}
}

func (c *Calculator) calculateTypeDef(t *wit.TypeDef) Info {
	if cached, ok := c.cache[t]; ok {
		return cached
	}

	var info Info

	switch kind := t.Kind.(type) {
	case *wit.Tuple:
		info = c.fields(tupleFields(kind))
	case *wit.List:
		info = Info{Size: 8, Align: 4}
	case *wit.Option:
		info = c.option(kind)
	default:
		info = Info{Size: 0, Align: 1}
	}

	c.cache[t] = info
	return info
}

type field struct {
	typ  wit.Type
	name string
}

func tupleFields(t *wit.Tuple) []field {
	out := make([]field, len(t.Types))
	for i, typ := range t.Types {
		out[i] = field{name: fmt.Sprint(i), typ: typ}
	}
	return out
}

// fields lays out a sequence of values one after another, padding each to
// its own alignment and the whole to the largest one. Fields are keyed by
// position.
func (c *Calculator) fields(fs []field) Info {
	if len(fs) == 0 {
		return Info{Size: 0, Align: 1}
	}

	offs := make(map[string]uint32, len(fs))
	maxAlign := uint32(1)
	offset := uint32(0)

	for _, f := range fs {
		fl := c.Calculate(f.typ)
		offset = AlignTo(offset, fl.Align)
		offs[f.name] = offset
		if fl.Align > maxAlign {
			maxAlign = fl.Align
		}
		offset += fl.Size
	}

	return Info{
		Size:      AlignTo(offset, maxAlign),
		Align:     maxAlign,
		FieldOffs: offs,
	}
}

func (c *Calculator) option(o *wit.Option) Info {
	inner := c.Calculate(o.Type)
	align := inner.Align
	if align < 1 {
		align = 1
	}
	payload := AlignTo(1, align)
	return Info{
		Size:      AlignTo(payload+inner.Size, align),
		Align:     align,
		FieldOffs: map[string]uint32{"some": payload},
	}
}

// TypeName renders t the way WIT source spells it.
func TypeName(t wit.Type) string {
	switch v := t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if v.Name != nil {
			return *v.Name
		}
		switch k := v.Kind.(type) {
		case *wit.List:
			return "list<" + TypeName(k.Type) + ">"
		case *wit.Option:
			return "option<" + TypeName(k.Type) + ">"
		case *wit.Tuple:
			s := "tuple<"
			for i, e := range k.Types {
				if i > 0 {
					s += ", "
				}
				s += TypeName(e)
			}
			return s + ">"
		}
		return "typedef"
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%T", t)
	}
}
