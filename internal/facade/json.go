package facade

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// MarshalJSON renders v roughly as JSON.stringify would: undefined,
// functions and promises become null, non-finite numbers become null, BigInt
// becomes a decimal string and valid dates an RFC 3339 string. Object
// properties keep their order.
func MarshalJSON(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := appendJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func appendJSON(buf *bytes.Buffer, v Value) error {
	switch v := v.(type) {
	case nil, Null, Undefined, *Function, *Promise:
		buf.WriteString("null")
	case Int32:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case Float64:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			buf.WriteString("null")
		} else {
			buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		}
	case Boolean:
		buf.WriteString(strconv.FormatBool(bool(v)))
	case String:
		return writeJSONString(buf, string(v))
	case *BigInt:
		return writeJSONString(buf, v.Int().String())
	case Date:
		if !v.Valid() {
			buf.WriteString("null")
			return nil
		}
		return writeJSONString(buf, v.String())
	case *Object:
		buf.WriteByte('{')
		i := 0
		for k, fv := range v.Fields() {
			if i > 0 {
				buf.WriteByte(',')
			}
			i++
			if err := writeJSONString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := appendJSON(buf, fv); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case *Array:
		buf.WriteByte('[')
		for i, ev := range v.All() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendJSON(buf, ev); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	}
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
