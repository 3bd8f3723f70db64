package keys

import (
	"io/ioutil"
	"os"
	"path"
	"reflect"
	"testing"

	wcrypto "github.com/mosaicnetworks/warroom/src/crypto"
)

func TestSeededKeyGeneration(t *testing.T) {
	key1, err := GenerateSeededECDSAKey(42)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	key2, err := GenerateSeededECDSAKey(42)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if !reflect.DeepEqual(key1.D, key2.D) {
		t.Fatalf("same seed should produce the same key")
	}

	key3, err := GenerateSeededECDSAKey(43)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if reflect.DeepEqual(key1.D, key3.D) {
		t.Fatalf("different seeds should produce different keys")
	}
}

func TestDumpParseRoundTrip(t *testing.T) {
	key, err := GenerateSeededECDSAKey(1)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	dump := DumpPrivateKey(key)

	parsed, err := ParsePrivateKey(dump)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if parsed.D.Cmp(key.D) != 0 {
		t.Fatalf("parsed key D should match the original")
	}

	pub := FromPublicKey(&key.PublicKey)
	back := ToPublicKey(pub)
	if back.X.Cmp(key.PublicKey.X) != 0 || back.Y.Cmp(key.PublicKey.Y) != 0 {
		t.Fatalf("public key did not survive the round trip")
	}
}

func TestSimpleKeyfile(t *testing.T) {
	dir, err := ioutil.TempDir("", "warroom")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer os.RemoveAll(dir)

	simpleKeyfile := NewSimpleKeyfile(path.Join(dir, "priv_key"))

	// Try a read, should get nothing
	key, err := simpleKeyfile.ReadKey()
	if err == nil {
		t.Fatalf("ReadKey should generate an error")
	}
	if key != nil {
		t.Fatalf("key is not nil")
	}

	key, err = GenerateSeededECDSAKey(11)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if err := simpleKeyfile.WriteKey(key); err != nil {
		t.Fatalf("err: %v", err)
	}

	nKey, err := simpleKeyfile.ReadKey()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if nKey.D.Cmp(key.D) != 0 {
		t.Fatalf("keys do not match")
	}
}

func TestKeyfilePermissions(t *testing.T) {
	dir, err := ioutil.TempDir("", "warroom")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer os.RemoveAll(dir)

	key, err := GenerateSeededECDSAKey(12)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	keyPath := path.Join(dir, "priv_key")

	simpleKeyfile := NewSimpleKeyfile(keyPath)
	if err := simpleKeyfile.WriteKey(key); err != nil {
		t.Fatalf("err: %v", err)
	}

	// WriteKey uses 0600, which passes the permission check
	if _, err := simpleKeyfile.ReadKey(); err != nil {
		t.Fatalf("err: %v", err)
	}

	if err := os.Chmod(keyPath, 0644); err != nil {
		t.Fatalf("err: %v", err)
	}

	if _, err := simpleKeyfile.ReadKey(); err == nil {
		t.Fatalf("a key readable by others should be rejected")
	}
}

func TestSignatureEncoding(t *testing.T) {
	privKey, _ := GenerateECDSAKey()

	msg := "J'aime mieux forger mon ame que la meubler"
	msgBytes := []byte(msg)
	msgHashBytes := wcrypto.SHA256(msgBytes)

	r, s, _ := Sign(privKey, msgHashBytes)

	encodedSig := EncodeSignature(r, s)

	dr, ds, err := DecodeSignature(encodedSig)
	if err != nil {
		t.Logf("r: %#v", r)
		t.Logf("s: %#v", s)
		t.Logf("error decoding %v", encodedSig)
		t.Fatal(err)
	}

	if r.Cmp(dr) != 0 {
		t.Fatalf("Signature Rs defer")
	}

	if s.Cmp(ds) != 0 {
		t.Fatalf("Signature Ss defer")
	}
}

func TestVerifyEncoded(t *testing.T) {
	privKey, err := GenerateSeededECDSAKey(7)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	digest := wcrypto.Shake256([]byte("attack"))

	sig, err := SignEncoded(privKey, digest)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if !VerifyEncoded(&privKey.PublicKey, digest, sig) {
		t.Fatalf("signature should verify")
	}

	otherDigest := wcrypto.Shake256([]byte("retreat"))
	if VerifyEncoded(&privKey.PublicKey, otherDigest, sig) {
		t.Fatalf("signature should not verify against another digest")
	}

	if VerifyEncoded(&privKey.PublicKey, digest, "not|asig") {
		t.Fatalf("garbage signature should not verify")
	}

	if VerifyEncoded(&privKey.PublicKey, digest, "garbage") {
		t.Fatalf("malformed signature should not verify")
	}
}
