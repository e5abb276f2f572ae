package webhook

import "crypto/subtle"

// SecretTokenHeader carries the shared secret on inbound platform callbacks.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// Authenticate compares an inbound request's claimed secret with the bot's
// persisted secret in constant time. A bot that never completed registration
// has no secret and always rejects. This runs on the synchronous request path
// before any payload parsing and must stay free of network or queue work.
func Authenticate(claimed, stored string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(claimed), []byte(stored)) == 1
}
