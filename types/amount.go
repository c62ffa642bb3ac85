package types

import (
	"encoding/json"
	"fmt"
	"math/big"

	cbor "github.com/ipfs/go-ipld-cbor"
	"github.com/polydawn/refmt/obj/atlas"
)

func init() {
	cbor.RegisterCborType(atlas.BuildEntry(Amount{}).UseTag(2).Transform().
		TransformMarshal(atlas.MakeMarshalTransformFunc(
			func(a Amount) ([]byte, error) {
				if a.Int == nil {
					return []byte{}, nil
				}

				return a.Bytes(), nil
			})).
		TransformUnmarshal(atlas.MakeUnmarshalTransformFunc(
			func(x []byte) (Amount, error) {
				return AmountFromBytes(x), nil
			})).
		Complete())
}

// Amount is a non-negative, arbitrary-precision quantity of network tokens.
type Amount struct {
	*big.Int
}

func NewAmount(i uint64) Amount {
	return Amount{big.NewInt(0).SetUint64(i)}
}

func AmountFromBytes(b []byte) Amount {
	i := big.NewInt(0).SetBytes(b)
	return Amount{i}
}

func AmountFromString(s string) (Amount, error) {
	v, ok := big.NewInt(0).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("failed to parse string as an amount")
	}

	return Amount{v}, nil
}

func AmountAdd(a, b Amount) Amount {
	return Amount{big.NewInt(0).Add(a.Int, b.Int)}
}

func AmountSub(a, b Amount) Amount {
	return Amount{big.NewInt(0).Sub(a.Int, b.Int)}
}

func AmountCmp(a, b Amount) int {
	return a.Int.Cmp(b.Int)
}

func (a Amount) Nil() bool {
	return a.Int == nil
}

func (a Amount) LessThan(o Amount) bool {
	return AmountCmp(a, o) < 0
}

func (a Amount) GreaterThan(o Amount) bool {
	return AmountCmp(a, o) > 0
}

func (a Amount) Equals(o Amount) bool {
	return AmountCmp(a, o) == 0
}

func (a *Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	i, ok := big.NewInt(0).SetString(s, 10)
	if !ok {
		if s == "<nil>" {
			return nil
		}
		return fmt.Errorf("failed to parse amount string")
	}

	a.Int = i
	return nil
}
