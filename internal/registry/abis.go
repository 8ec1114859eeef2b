package registry

// ABI fragments used by the chain reader, route decoder and submitter.
const (
	ERC20MinimalABI = `[
		{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"allowance","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
	]`

	// RevenueBridgerABI is the destination contract entrypoint. Its array
	// arguments share the RedSnwapper tuple layouts.
	RevenueBridgerABI = `[
		{"name":"swapAndBridge","type":"function","stateMutability":"payable","inputs":[
			{"name":"inputTokens","type":"tuple[]","components":[{"name":"token","type":"address"},{"name":"amountIn","type":"uint256"},{"name":"transferTo","type":"address"}]},
			{"name":"outputTokens","type":"tuple[]","components":[{"name":"token","type":"address"},{"name":"recipient","type":"address"},{"name":"amountOutMin","type":"uint256"}]},
			{"name":"executors","type":"tuple[]","components":[{"name":"executor","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"}]},
			{"name":"minUsdcOut","type":"uint256"},
			{"name":"callTarget","type":"address"},
			{"name":"callData","type":"bytes"},
			{"name":"nativeValue","type":"uint256"}
		],"outputs":[]}
	]`
)

// Route payload shapes emitted by the route-quoting service. Shapes are tried
// in the order they are listed.
const (
	RouteShapeVersion = "redsnwapper/v1"

	SnwapMultipleABI = `[
		{"name":"snwapMultiple","type":"function","stateMutability":"payable","inputs":[
			{"name":"inputTokens","type":"tuple[]","components":[{"name":"token","type":"address"},{"name":"amountIn","type":"uint256"},{"name":"transferTo","type":"address"}]},
			{"name":"outputTokens","type":"tuple[]","components":[{"name":"token","type":"address"},{"name":"recipient","type":"address"},{"name":"amountOutMin","type":"uint256"}]},
			{"name":"executors","type":"tuple[]","components":[{"name":"executor","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"}]}
		],"outputs":[{"name":"amountOut","type":"uint256[]"}]}
	]`

	SnwapABI = `[
		{"name":"snwap","type":"function","stateMutability":"payable","inputs":[
			{"name":"tokenIn","type":"address"},
			{"name":"amountIn","type":"uint256"},
			{"name":"recipient","type":"address"},
			{"name":"tokenOut","type":"address"},
			{"name":"amountOutMin","type":"uint256"},
			{"name":"executor","type":"address"},
			{"name":"executorData","type":"bytes"}
		],"outputs":[{"name":"amountOut","type":"uint256"}]}
	]`
)

type RouteShape struct {
	Name   string
	Method string
	ABI    string
}

var routeShapesByVersion = map[string][]RouteShape{
	RouteShapeVersion: {
		{Name: "multi", Method: "snwapMultiple", ABI: SnwapMultipleABI},
		{Name: "single", Method: "snwap", ABI: SnwapABI},
	},
}

// RouteShapes returns the ordered decode candidates for a shape version.
func RouteShapes(version string) ([]RouteShape, bool) {
	shapes, ok := routeShapesByVersion[version]
	if !ok {
		return nil, false
	}
	return append([]RouteShape(nil), shapes...), true
}
