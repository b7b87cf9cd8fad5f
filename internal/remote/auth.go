package remote

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
)

const (
	SchemeConsumer = "consumer"
	SchemeAccount  = "account"
)

// Auth identifies the signer of a request. Scheme names the header family,
// ID is sent in the clear and SigID is folded into the signature.
type Auth struct {
	Scheme string
	ID     string
	SigID  string
	Secret string
}

// Signature returns md5hex("ts-sigID-secret")
func Signature(ts int64, sigID, secret string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%d-%s-%s", ts, sigID, secret)))
	return hex.EncodeToString(sum[:])
}

// Sign sets the app, id and time-boxed signature headers:
//
//	<Prefix>-App-Id:        appID
//	<Prefix>-<Scheme>-Id:   auth.ID
//	<Prefix>-<Scheme>-Sig:  ts|auth.SigID|Signature(ts, auth.SigID, auth.Secret)
func Sign(h http.Header, prefix, appID string, auth Auth, ts int64) {
	if auth.Scheme == "" {
		return
	}
	scheme := strings.ToUpper(auth.Scheme[:1]) + auth.Scheme[1:]
	h.Set(prefix+"-App-Id", appID)
	h.Set(prefix+"-"+scheme+"-Id", auth.ID)
	h.Set(prefix+"-"+scheme+"-Sig", fmt.Sprintf("%d|%s|%s", ts, auth.SigID, Signature(ts, auth.SigID, auth.Secret)))
}
