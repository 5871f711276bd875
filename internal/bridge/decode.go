package bridge

import (
	"fmt"
	"strconv"

	"github.com/zou/appbridge/internal/shared/types"
)

// Decode validates a raw channel call and builds its Command. On failure the
// returned Result is the reply to send and the Command is zero.
//
// The method is checked before the arguments, so an unknown method with no
// arguments reports UnknownMethod.
func Decode(method string, args map[string]interface{}) (types.Command, *types.Result) {
	var kind types.CommandKind
	switch method {
	case types.MethodIsAppInstalled:
		kind = types.CommandCheckInstalled
	case types.MethodOpenApp:
		kind = types.CommandLaunchApp
	default:
		r := types.Fail(types.UnknownMethod, "")
		return types.Command{}, &r
	}

	appID, ok := PackageName(args)
	if !ok {
		r := types.Fail(types.MissingArgument, types.MessagePackageNameNull)
		return types.Command{}, &r
	}
	return types.Command{Kind: kind, AppID: appID}, nil
}

// PackageName extracts the packageName argument. Only an absent or null value
// reports false. Strings, including "", are used verbatim; anything else is
// formatted and left for the registry to reject.
func PackageName(args map[string]interface{}) (string, bool) {
	v, ok := args[types.ArgPackageName]
	if !ok || v == nil {
		return "", false
	}

	var s string
	switch val := v.(type) {
	case string:
		s = val
	case bool:
		s = strconv.FormatBool(val)
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		s = strconv.Itoa(val)
	case int64:
		s = strconv.FormatInt(val, 10)
	case uint64:
		s = strconv.FormatUint(val, 10)
	case interface{ String() string }:
		// json.Number and friends
		s = val.String()
	default:
		s = fmt.Sprint(val)
	}
	return s, true
}
