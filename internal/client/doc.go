// Package client is the UI layer's side of the bridge channel.
//
// Structured failures from the host come back as *Error; use errors.As to
// read the code:
//
//	installed, err := c.IsAppInstalled(ctx, "org.mozilla.firefox")
//	var bridgeErr *client.Error
//	if errors.As(err, &bridgeErr) && bridgeErr.Code == types.MissingArgument {
//		...
//	}
package client
