package route

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	clierr "github.com/ggonzalez94/swap-bridge-relayer/internal/errors"
	"github.com/ggonzalez94/swap-bridge-relayer/internal/registry"
)

const (
	ShapeMulti  = "multi"
	ShapeSingle = "single"
)

// Executor is the contract that performs a swap leg and the opaque payload
// it is called with.
type Executor struct {
	Address common.Address
	Value   *big.Int
	Data    []byte
}

type InputLeg struct {
	Token      common.Address
	AmountIn   *big.Int
	TransferTo common.Address
}

type OutputLeg struct {
	Token        common.Address
	Recipient    common.Address
	AmountOutMin *big.Int
}

// Decoded is a route payload normalized to the multi-leg layout. Single-leg
// payloads produce one entry in each slice.
type Decoded struct {
	Version   string
	Shape     string
	Method    string
	Executor  Executor
	Inputs    []InputLeg
	Outputs   []OutputLeg
	Executors []Executor
}

type shape struct {
	name   string
	method abi.Method
	decode func(abi.Method, []interface{}) (Decoded, error)
}

var shapes = mustShapes(registry.RouteShapeVersion)

// Decode extracts the executor from a raw route payload, trying the
// multi-leg layout first and the single-leg layout second.
func Decode(raw []byte) (Executor, error) {
	decoded, err := DecodeRoute(raw)
	if err != nil {
		return Executor{}, err
	}
	return decoded.Executor, nil
}

func DecodeRoute(raw []byte) (Decoded, error) {
	causes := make([]string, 0, len(shapes))
	for _, s := range shapes {
		decoded, err := s.try(raw)
		if err == nil {
			decoded.Version = registry.RouteShapeVersion
			decoded.Shape = s.name
			decoded.Method = s.method.Name
			return decoded, nil
		}
		causes = append(causes, fmt.Sprintf("%s: %v", s.method.Name, err))
	}
	return Decoded{}, clierr.New(clierr.CodeDecode, "route payload matches no known shape ("+strings.Join(causes, "; ")+")")
}

func (s shape) try(raw []byte) (Decoded, error) {
	if len(raw) < 4 {
		return Decoded{}, fmt.Errorf("payload shorter than a selector")
	}
	if !bytes.Equal(raw[:4], s.method.ID) {
		return Decoded{}, fmt.Errorf("selector 0x%x does not match 0x%x", raw[:4], s.method.ID)
	}
	values, err := s.method.Inputs.Unpack(raw[4:])
	if err != nil {
		return Decoded{}, err
	}
	return s.decode(s.method, values)
}

type multiArgs struct {
	InputTokens []struct {
		Token      common.Address
		AmountIn   *big.Int
		TransferTo common.Address
	}
	OutputTokens []struct {
		Token        common.Address
		Recipient    common.Address
		AmountOutMin *big.Int
	}
	Executors []struct {
		Executor common.Address
		Value    *big.Int
		Data     []byte
	}
}

func decodeMulti(method abi.Method, values []interface{}) (Decoded, error) {
	var args multiArgs
	if err := method.Inputs.Copy(&args, values); err != nil {
		return Decoded{}, err
	}
	if len(args.Executors) == 0 {
		return Decoded{}, fmt.Errorf("executors array is empty")
	}
	out := Decoded{}
	for _, in := range args.InputTokens {
		out.Inputs = append(out.Inputs, InputLeg{Token: in.Token, AmountIn: in.AmountIn, TransferTo: in.TransferTo})
	}
	for _, o := range args.OutputTokens {
		out.Outputs = append(out.Outputs, OutputLeg{Token: o.Token, Recipient: o.Recipient, AmountOutMin: o.AmountOutMin})
	}
	for _, e := range args.Executors {
		out.Executors = append(out.Executors, Executor{Address: e.Executor, Value: e.Value, Data: e.Data})
	}
	// Only the first executor is carried into the swap; quotes are per token.
	out.Executor = out.Executors[0]
	return out, nil
}

func decodeSingle(_ abi.Method, values []interface{}) (Decoded, error) {
	if len(values) != 7 {
		return Decoded{}, fmt.Errorf("expected 7 arguments, got %d", len(values))
	}
	tokenIn, ok1 := toAddress(values[0])
	amountIn, ok2 := toBigInt(values[1])
	recipient, ok3 := toAddress(values[2])
	tokenOut, ok4 := toAddress(values[3])
	amountOutMin, ok5 := toBigInt(values[4])
	executor, ok6 := toAddress(values[5])
	data, ok7 := values[6].([]byte)
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6 && ok7) {
		return Decoded{}, fmt.Errorf("unexpected argument types")
	}
	exec := Executor{Address: executor, Value: new(big.Int), Data: data}
	return Decoded{
		Executor:  exec,
		Inputs:    []InputLeg{{Token: tokenIn, AmountIn: amountIn, TransferTo: executor}},
		Outputs:   []OutputLeg{{Token: tokenOut, Recipient: recipient, AmountOutMin: amountOutMin}},
		Executors: []Executor{exec},
	}, nil
}

func toAddress(v any) (common.Address, bool) {
	switch value := v.(type) {
	case common.Address:
		return value, true
	case *common.Address:
		if value == nil {
			return common.Address{}, false
		}
		return *value, true
	default:
		return common.Address{}, false
	}
}

func toBigInt(v any) (*big.Int, bool) {
	value, ok := v.(*big.Int)
	if !ok || value == nil {
		return nil, false
	}
	return value, true
}

func mustShapes(version string) []shape {
	defs, ok := registry.RouteShapes(version)
	if !ok {
		panic(fmt.Sprintf("unknown route shape version %s", version))
	}
	decoders := map[string]func(abi.Method, []interface{}) (Decoded, error){
		ShapeMulti:  decodeMulti,
		ShapeSingle: decodeSingle,
	}
	out := make([]shape, 0, len(defs))
	for _, def := range defs {
		parsed, err := abi.JSON(strings.NewReader(def.ABI))
		if err != nil {
			panic(err)
		}
		method, ok := parsed.Methods[def.Method]
		if !ok {
			panic(fmt.Sprintf("route shape %s missing method %s", def.Name, def.Method))
		}
		decode, ok := decoders[def.Name]
		if !ok {
			panic(fmt.Sprintf("no decoder for route shape %s", def.Name))
		}
		out = append(out, shape{name: def.Name, method: method, decode: decode})
	}
	return out
}
