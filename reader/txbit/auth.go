package txbit

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"strconv"
)

// signHeader carries the HMAC-SHA512 of the full request URL.
const signHeader = "apisign"

// sign adds the key and nonce to params and returns the signature of the
// resulting URL.
func sign(endpoint string, params url.Values, apiKey, apiSecret string, nonce int64) (string, string) {
	params.Set("apikey", apiKey)
	params.Set("nonce", strconv.FormatInt(nonce, 10))
	full := endpoint + "?" + params.Encode()

	mac := hmac.New(sha512.New, []byte(apiSecret))
	mac.Write([]byte(full))
	return full, hex.EncodeToString(mac.Sum(nil))
}
