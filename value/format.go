/*
 * CML - An embeddable object-oriented scripting engine
 * Copyright (c) 2024-5 by the CML authors. All rights reserved.
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package value

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DbgFormat writes a human-readable rendering of v to w, for use only by a
// host debugging UI (spec §4.1). radix applies to integer intrinsics
// (2, 8, 10, 16); float and non-numeric kinds ignore it. It reports false when the
// kind has no debug rendering (e.g. Void), matching the "optional" contract.
func (v *Value) DbgFormat(w io.Writer, namer ClassNamer, radix int) (bool, error) {
	if radix == 0 {
		radix = 10
	}
	var text string
	switch {
	case v.Kind == KindVoid:
		return false, nil
	case v.Kind == KindBoolean:
		text = strconv.FormatBool(v.Num.Bool)
	case v.Kind == KindChar:
		text = string(v.Num.Char)
	case v.Kind.IsInteger():
		text = formatIntegerRadix(v, radix)
	case v.Kind == KindFloat4:
		text = strconv.FormatFloat(float64(v.Num.F32), 'g', -1, 32)
	case v.Kind == KindFloat8:
		text = strconv.FormatFloat(v.Num.F64, 'g', -1, 64)
	case v.Kind == KindString:
		text = v.Str
	case v.Kind == KindStringList:
		var sb strings.Builder
		sb.WriteByte('[')
		for i, e := range v.List {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(e.Str)
		}
		sb.WriteByte(']')
		text = sb.String()
	case v.Kind == KindEnum && v.Enum != nil:
		if v.Enum.Ordinal >= 0 && v.Enum.Ordinal < len(v.Enum.Names) {
			text = v.Enum.Names[v.Enum.Ordinal]
		} else {
			text = "<bad-ordinal>"
		}
	case v.Kind == KindObject:
		className := "?"
		if namer != nil {
			if p, ok := namer.ClassPathByID(v.ClassID); ok {
				className = p
			}
		}
		text = fmt.Sprintf("<%s instance>", className)
	default:
		return false, nil
	}
	_, err := io.WriteString(w, text)
	return true, err
}

func formatIntegerRadix(v *Value, radix int) string {
	switch v.Kind {
	case KindCard1:
		return strconv.FormatUint(uint64(v.Num.U8), radix)
	case KindCard2:
		return strconv.FormatUint(uint64(v.Num.U16), radix)
	case KindCard4:
		return strconv.FormatUint(uint64(v.Num.U32), radix)
	case KindCard8:
		return strconv.FormatUint(v.Num.U64, radix)
	case KindInt1:
		return strconv.FormatInt(int64(v.Num.I8), radix)
	case KindInt2:
		return strconv.FormatInt(int64(v.Num.I16), radix)
	case KindInt4:
		return strconv.FormatInt(int64(v.Num.I32), radix)
	default:
		return ""
	}
}

// ParseFromText implements spec §4.1's parse_from_text for primitive
// classes only; non-primitive kinds always return false.
func (v *Value) ParseFromText(text string) bool {
	switch v.Kind {
	case KindBoolean:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return false
		}
		v.Num.Bool = b
	case KindChar:
		r := []rune(text)
		if len(r) != 1 {
			return false
		}
		v.Num.Char = r[0]
	case KindCard1, KindCard2, KindCard4, KindCard8:
		bits := cardBits(v.Kind)
		n, err := strconv.ParseUint(text, 0, bits)
		if err != nil {
			return false
		}
		setCard(v, n)
	case KindInt1, KindInt2, KindInt4:
		bits := intBits(v.Kind)
		n, err := strconv.ParseInt(text, 0, bits)
		if err != nil {
			return false
		}
		setInt(v, n)
	case KindFloat4:
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return false
		}
		v.Num.F32 = float32(f)
	case KindFloat8:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return false
		}
		v.Num.F64 = f
	case KindString:
		v.Str = text
	default:
		return false
	}
	return true
}

func cardBits(k Kind) int {
	switch k {
	case KindCard1:
		return 8
	case KindCard2:
		return 16
	case KindCard4:
		return 32
	default:
		return 64
	}
}

func intBits(k Kind) int {
	switch k {
	case KindInt1:
		return 8
	case KindInt2:
		return 16
	default:
		return 32
	}
}

func setCard(v *Value, n uint64) {
	switch v.Kind {
	case KindCard1:
		v.Num.U8 = uint8(n)
	case KindCard2:
		v.Num.U16 = uint16(n)
	case KindCard4:
		v.Num.U32 = uint32(n)
	case KindCard8:
		v.Num.U64 = n
	}
}

func setInt(v *Value, n int64) {
	switch v.Kind {
	case KindInt1:
		v.Num.I8 = int8(n)
	case KindInt2:
		v.Num.I16 = int16(n)
	case KindInt4:
		v.Num.I32 = int32(n)
	}
}
