package utils

// MaskToken shortens a bearer token for log output, keeping just enough
// of the tail to correlate entries.
func MaskToken(token string) string {
	if len(token) <= 6 {
		return "***"
	}
	return "***" + token[len(token)-6:]
}
