package auth

import "github.com/google/uuid"

// ConfirmationCode derives the signup confirmation code for a username.
//
// The code is a name-based UUID over the DNS namespace, so it is stable for
// a given username: anyone can regenerate it. That makes it reproducible
// rather than secret, and exchange does not invalidate it after use. Both
// properties are deliberate and documented weaknesses of the signup flow;
// a redesign would issue a random single-use code with an expiry.
func ConfirmationCode(username string) string {
	return uuid.NewMD5(uuid.NameSpaceDNS, []byte(username)).String()
}
