// Package licensesdk is a Go client for the GeoForest licensing service.
//
// A Client wraps every HTTP endpoint. Failed calls return *APIError, which
// the Is* helpers classify:
//
//	c := licensesdk.NewClient("https://licensing.example.com", licensesdk.StaticToken(idToken))
//	grant, err := c.RedeemDelegation(ctx, "a1b2c3", "")
//	if licensesdk.IsNotFound(err) {
//		// unknown or already used
//	}
package licensesdk
