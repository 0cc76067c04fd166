package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"
)

// FuzzVerify feeds arbitrary strings to the parser. Nothing may panic and
// anything accepted must come back with claims of the requested kind.
func FuzzVerify(f *testing.F) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		f.Fatal(err)
	}
	mgr, err := NewManager(Config{
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "fuzz",
	})
	if err != nil {
		f.Fatal(err)
	}

	valid, _, err := mgr.Sign(Claims{Kind: KindAccess, Username: "fuzz"}, 5*time.Minute)
	if err != nil {
		f.Fatal(err)
	}

	f.Add(valid)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJFZERTQSJ9.eyJ1aWQiOiJ0ZXN0In0.invalid")
	f.Add("eyJhbGciOiJub25lIn0.eyJ1aWQiOiJ0ZXN0In0.")

	f.Fuzz(func(t *testing.T, input string) {
		for _, parse := range []func(string, Kind) (*Claims, error){mgr.Verify, mgr.Inspect} {
			claims, err := parse(input, KindAccess)
			if err != nil {
				continue
			}
			if claims == nil || claims.Kind != KindAccess {
				t.Fatalf("accepted token without access claims: %+v", claims)
			}
		}
	})
}
