// Package auth issues and verifies the HS256 bearer tokens that guard the
// transcript API's write endpoints.
//
//	svc, err := auth.NewService(auth.Config{Secret: secret})
//	token, err := svc.Generate("editor")
//	claims, err := svc.Parse(token)
package auth
