// Package jwt issues and verifies the HS512 bearer tokens that identify the
// administrator calling the gettoken API. The token subject is the
// administrator login, which is also the casbin subject.
package jwt
