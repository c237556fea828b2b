// pdfmill/pdf - support for reading and writing PDF files
// Copyright (C) 2026  The pdfmill authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package pdf

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"crypto/rc4"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"io"

	"github.com/xdg-go/stringprep"
)

// PasswordType reports which password was used to decrypt a file.
type PasswordType int

const (
	// NotDecrypted indicates that the encrypted file has not been
	// decrypted, or that the file is not encrypted at all.
	NotDecrypted PasswordType = iota

	// UserPassword indicates that the file was decrypted using the user
	// password.  Operations are restricted by the permission flags.
	UserPassword

	// OwnerPassword indicates that the file was decrypted using the owner
	// password.  All operations are allowed.
	OwnerPassword
)

func (t PasswordType) String() string {
	switch t {
	case UserPassword:
		return "user password"
	case OwnerPassword:
		return "owner password"
	}
	return "not decrypted"
}

// Perm describes which operations are allowed on an encrypted file opened
// with the user password.
type Perm uint32

// Permission flags, corresponding to the bit positions of the /P entry in
// the encryption dictionary.
const (
	PermPrint      Perm = 1 << 2  // print the document
	PermModify     Perm = 1 << 3  // modify the contents
	PermCopy       Perm = 1 << 4  // copy text and graphics
	PermAnnotate   Perm = 1 << 5  // add or modify annotations
	PermFillForms  Perm = 1 << 8  // fill in form fields
	PermAccessible Perm = 1 << 9  // extract text for accessibility
	PermAssemble   Perm = 1 << 10 // insert, rotate or delete pages
	PermPrintFull  Perm = 1 << 11 // print at full resolution

	PermAll = PermPrint | PermModify | PermCopy | PermAnnotate |
		PermFillForms | PermAccessible | PermAssemble | PermPrintFull
)

const permMask = uint32(PermAll)

// toP converts permission flags to the 32-bit /P value, with the reserved
// bits set as required for the standard security handler.
func (perm Perm) toP() Integer {
	return Integer(int32(uint32(perm)&permMask | 0xFFFFF0C0))
}

func permFromP(p uint32) Perm {
	return Perm(p & permMask)
}

type cipherType int

const (
	cipherUnknown cipherType = iota
	cipherIdentity
	cipherRC4
	cipherAESV2
	cipherAESV3
)

// cryptFilter describes the cipher applied to one class of data.
type cryptFilter struct {
	Cipher cipherType
	Length int // key length in bytes
}

// encryptInfo ties together the security handler and the crypt filters for
// streams and strings.
type encryptInfo struct {
	sec *stdSecHandler

	stmF *cryptFilter // for streams
	strF *cryptFilter // for strings

	ref Reference // the location of the encryption dictionary
	id  []byte    // first half of the file identifier
}

// readEncryptInfo reads the encryption dictionary of r.  This runs before
// any decryption key is known, which is safe because the dictionary itself
// is never encrypted.
func (r *Reader) readEncryptInfo() (*encryptInfo, error) {
	ref, _ := r.Trailer["Encrypt"].(Reference)
	dict, err := r.GetDict(r.Trailer["Encrypt"])
	if err != nil {
		return nil, err
	}
	if dict == nil {
		return nil, &MalformedFileError{
			Err: errors.New("missing encryption dictionary"),
		}
	}
	if filter, _ := dict["Filter"].(Name); filter != "Standard" {
		return nil, &UnsupportedError{
			Feature: fmt.Sprintf("security handler %q", filter),
		}
	}

	var id []byte
	if fileID := r.ID(); fileID != nil {
		id = fileID[0]
	} else {
		r.opt.Log(WarnLevel, "encrypted file has no /ID")
	}

	enc := &encryptInfo{ref: ref, id: id}

	V, _ := dict["V"].(Integer)
	length := 40
	if obj, ok := dict["Length"].(Integer); ok {
		length = int(obj)
	}
	if length < 40 || length > 256 || length%8 != 0 {
		return nil, &MalformedFileError{
			Err: fmt.Errorf("invalid key length %d", length),
		}
	}
	switch V {
	case 1:
		enc.stmF = &cryptFilter{Cipher: cipherRC4, Length: 5}
		enc.strF = enc.stmF
	case 2:
		enc.stmF = &cryptFilter{Cipher: cipherRC4, Length: length / 8}
		enc.strF = enc.stmF
	case 4, 5:
		cf, err := r.GetDict(dict["CF"])
		if err != nil {
			return nil, err
		}
		if enc.stmF, err = getCryptFilter(r, cf, dict["StmF"]); err != nil {
			return nil, err
		}
		if enc.strF, err = getCryptFilter(r, cf, dict["StrF"]); err != nil {
			return nil, err
		}
	default:
		return nil, &UnsupportedError{
			Feature: fmt.Sprintf("encryption version %d", V),
		}
	}

	sec, err := openStdSecHandler(dict, int(V), id)
	if err != nil {
		return nil, err
	}
	enc.sec = sec
	return enc, nil
}

func getCryptFilter(r *Reader, cf Dict, sel Object) (*cryptFilter, error) {
	name, err := r.GetName(sel)
	if err != nil {
		return nil, err
	}
	if name == "" || name == "Identity" {
		return &cryptFilter{Cipher: cipherIdentity}, nil
	}
	filter, err := r.GetDict(cf[name])
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return nil, &MalformedFileError{
			Err: fmt.Errorf("crypt filter %q not defined", name),
		}
	}

	res := &cryptFilter{}
	if length, ok := filter["Length"].(Integer); ok {
		res.Length = int(length)
		if res.Length > 40 {
			// Some writers use bits instead of bytes here.
			res.Length /= 8
		}
	}
	cfm, _ := filter["CFM"].(Name)
	switch cfm {
	case "V2":
		res.Cipher = cipherRC4
		if res.Length == 0 {
			res.Length = 5
		}
	case "AESV2":
		res.Cipher = cipherAESV2
		res.Length = 16
	case "AESV3":
		res.Cipher = cipherAESV3
		res.Length = 32
	case "Identity":
		res.Cipher = cipherIdentity
	default:
		return nil, &UnsupportedError{
			Feature: fmt.Sprintf("crypt filter method %q", cfm),
		}
	}
	return res, nil
}

// TryPassword attempts to authenticate with the given password, first as
// owner and then as user password.  The empty password is always tried as
// a fallback.  The matching password type is returned, or NotDecrypted if
// neither password matched.
func (enc *encryptInfo) TryPassword(pwd string) PasswordType {
	candidates := []string{pwd}
	if pwd != "" {
		candidates = append(candidates, "")
	}
	for _, cand := range candidates {
		if enc.sec.authOwner(cand) {
			return OwnerPassword
		}
		if enc.sec.authUser(cand) {
			return UserPassword
		}
	}
	return NotDecrypted
}

// Permissions returns the permission flags from the encryption dictionary.
func (enc *encryptInfo) Permissions() Perm {
	return permFromP(enc.sec.p)
}

// keyForRef computes the encryption key for one indirect object.
func (enc *encryptInfo) keyForRef(cf *cryptFilter, ref Reference) ([]byte, error) {
	key := enc.sec.key
	if key == nil {
		return nil, &AuthenticationError{ID: enc.id}
	}
	if cf.Cipher == cipherAESV3 {
		// AES-256 uses the file key directly.
		return key, nil
	}

	h := md5.New()
	h.Write(key)
	h.Write([]byte{
		byte(ref.Number), byte(ref.Number >> 8), byte(ref.Number >> 16),
		byte(ref.Generation), byte(ref.Generation >> 8),
	})
	if cf.Cipher == cipherAESV2 {
		h.Write([]byte("sAlT"))
	}
	sum := h.Sum(nil)

	n := len(key) + 5
	if n > 16 {
		n = 16
	}
	return sum[:n], nil
}

func (enc *encryptInfo) crypt(cf *cryptFilter, ref Reference, buf []byte, encrypt bool) ([]byte, error) {
	if cf == nil || cf.Cipher == cipherIdentity {
		return buf, nil
	}
	key, err := enc.keyForRef(cf, ref)
	if err != nil {
		return nil, err
	}

	switch cf.Cipher {
	case cipherRC4:
		c, err := rc4.NewCipher(key)
		if err != nil {
			return nil, err
		}
		res := make([]byte, len(buf))
		c.XORKeyStream(res, buf)
		return res, nil
	case cipherAESV2, cipherAESV3:
		if encrypt {
			return aesCBCEncrypt(key, buf)
		}
		return aesCBCDecrypt(key, buf)
	}
	return nil, &UnsupportedError{Feature: "unknown cipher"}
}

// EncryptBytes encrypts the contents of a string object.
func (enc *encryptInfo) EncryptBytes(ref Reference, buf []byte) ([]byte, error) {
	return enc.crypt(enc.strF, ref, buf, true)
}

// DecryptBytes decrypts the contents of a string object.
func (enc *encryptInfo) DecryptBytes(ref Reference, buf []byte) ([]byte, error) {
	return enc.crypt(enc.strF, ref, buf, false)
}

// EncryptStreamBytes encrypts the raw payload of a stream.
func (enc *encryptInfo) EncryptStreamBytes(ref Reference, buf []byte) ([]byte, error) {
	return enc.crypt(enc.stmF, ref, buf, true)
}

// DecryptStreamBytes decrypts the raw payload of a stream.
func (enc *encryptInfo) DecryptStreamBytes(ref Reference, buf []byte) ([]byte, error) {
	return enc.crypt(enc.stmF, ref, buf, false)
}

// decryptObject walks obj and decrypts all strings and stream payloads in
// place.  References are left alone, they are decrypted when resolved.
func (enc *encryptInfo) decryptObject(ref Reference, obj Object) (Object, error) {
	switch x := obj.(type) {
	case String:
		res, err := enc.DecryptBytes(ref, []byte(x))
		if err != nil {
			return nil, err
		}
		return String(res), nil
	case Array:
		for i, elem := range x {
			res, err := enc.decryptObject(ref, elem)
			if err != nil {
				return nil, err
			}
			x[i] = res
		}
		return x, nil
	case Dict:
		for key, val := range x {
			res, err := enc.decryptObject(ref, val)
			if err != nil {
				return nil, err
			}
			x[key] = res
		}
		return x, nil
	case *Stream:
		if x.Dict["Type"] == Name("XRef") {
			// Cross-reference streams are never encrypted.
			return x, nil
		}
		dict, err := enc.decryptObject(ref, x.Dict)
		if err != nil {
			return nil, err
		}
		x.Dict = dict.(Dict)
		if x.Dict["Type"] == Name("Metadata") && !enc.sec.encryptMetadata {
			return x, nil
		}
		raw, err := enc.DecryptStreamBytes(ref, x.raw)
		if err != nil {
			return nil, err
		}
		x.SetRaw(raw)
		return x, nil
	}
	return obj, nil
}

func aesCBCEncrypt(key, buf []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	pad := 16 - len(buf)%16
	res := make([]byte, 16+len(buf)+pad)
	iv := res[:16]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, err
	}
	copy(res[16:], buf)
	for i := 16 + len(buf); i < len(res); i++ {
		res[i] = byte(pad)
	}
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(res[16:], res[16:])
	return res, nil
}

func aesCBCDecrypt(key, buf []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(buf) < 16 || len(buf)%16 != 0 {
		return nil, errCorrupted
	}
	iv := buf[:16]
	res := make([]byte, len(buf)-16)
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(res, buf[16:])
	if len(res) == 0 {
		return res, nil
	}
	pad := int(res[len(res)-1])
	if pad < 1 || pad > 16 || pad > len(res) {
		return nil, errCorrupted
	}
	return res[:len(res)-pad], nil
}

// stdSecHandler implements the standard security handler, revisions 2
// through 6.
type stdSecHandler struct {
	id []byte
	r  int // revision

	keyBytes int

	o, u   []byte // owner and user password hashes
	oe, ue []byte // encrypted file keys, revision 6 only
	perms  []byte // encrypted permissions, revision 6 only
	p      uint32

	encryptMetadata bool

	key     []byte // the file encryption key, set after authentication
	pwdType PasswordType
}

func openStdSecHandler(dict Dict, v int, id []byte) (*stdSecHandler, error) {
	R, ok := dict["R"].(Integer)
	if !ok {
		return nil, &MalformedFileError{Err: errors.New("missing /R")}
	}
	if R < 2 || R > 6 || (R >= 5 && v != 5) {
		return nil, &UnsupportedError{
			Feature: fmt.Sprintf("security handler revision %d", R),
		}
	}

	P, ok := dict["P"].(Integer)
	if !ok {
		return nil, &MalformedFileError{Err: errors.New("missing /P")}
	}

	O, _ := dict["O"].(String)
	U, _ := dict["U"].(String)
	minLen := 32
	if R >= 5 {
		minLen = 48
	}
	if len(O) < minLen || len(U) < minLen {
		return nil, &MalformedFileError{Err: errors.New("invalid /O or /U")}
	}

	sec := &stdSecHandler{
		id:              id,
		r:               int(R),
		o:               []byte(O[:minLen]),
		u:               []byte(U[:minLen]),
		p:               uint32(int32(P)),
		encryptMetadata: true,
	}

	switch {
	case R == 2:
		sec.keyBytes = 5
	case R <= 4:
		sec.keyBytes = 5
		if length, ok := dict["Length"].(Integer); ok {
			sec.keyBytes = int(length) / 8
		}
	default:
		sec.keyBytes = 32
		OE, _ := dict["OE"].(String)
		UE, _ := dict["UE"].(String)
		if len(OE) < 32 || len(UE) < 32 {
			return nil, &MalformedFileError{
				Err: errors.New("invalid /OE or /UE"),
			}
		}
		sec.oe = []byte(OE[:32])
		sec.ue = []byte(UE[:32])
		if perms, ok := dict["Perms"].(String); ok && len(perms) >= 16 {
			sec.perms = []byte(perms[:16])
		}
	}

	if emd, ok := dict["EncryptMetadata"].(Bool); ok {
		sec.encryptMetadata = bool(emd)
	}
	return sec, nil
}

// createStdSecHandler sets up a security handler for writing a new file.
func createStdSecHandler(opt *EncryptOptions, id []byte) (*stdSecHandler, error) {
	sec := &stdSecHandler{
		id:              id,
		p:               uint32(opt.Permissions.toP()),
		encryptMetadata: true,
		pwdType:         OwnerPassword,
	}
	switch opt.Scheme {
	case EncryptRC4_40:
		sec.r = 2
		sec.keyBytes = 5
	case EncryptRC4_128:
		sec.r = 3
		sec.keyBytes = 16
	case EncryptAES_128:
		sec.r = 4
		sec.keyBytes = 16
	case EncryptAES_256:
		sec.r = 6
		sec.keyBytes = 32
	default:
		return nil, fmt.Errorf("unknown encryption scheme %d", opt.Scheme)
	}

	user := opt.UserPassword
	owner := opt.OwnerPassword
	if owner == "" {
		owner = user
	}

	if sec.r == 6 {
		err := sec.createR6(user, owner)
		if err != nil {
			return nil, err
		}
		return sec, nil
	}

	// Revisions 2 to 4 can only represent passwords in PDFDocEncoding.
	for _, r := range user + owner {
		if _, ok := pdfDocEncode(r); !ok {
			return nil, errInvalidPassword
		}
	}

	sec.o = sec.computeO(owner, user)
	key := sec.computeFileKey(padPasswd(user))
	sec.u = sec.computeU(key)
	sec.key = key
	return sec, nil
}

// padPasswd converts a password to the padded 32-byte form used by
// revisions 2 to 4.
func padPasswd(passwd string) []byte {
	pw := make([]byte, 32)
	i := 0
	for _, r := range passwd {
		if i >= 32 {
			break
		}
		if c, ok := pdfDocEncode(r); ok {
			pw[i] = c
		} else {
			pw[i] = byte(r)
		}
		i++
	}
	copy(pw[i:], passwdPad)
	return pw
}

// computeFileKey implements algorithm 2 from the PDF specification,
// deriving the file encryption key from a padded user password.
func (sec *stdSecHandler) computeFileKey(paddedPwd []byte) []byte {
	h := md5.New()
	h.Write(paddedPwd)
	h.Write(sec.o)
	h.Write([]byte{
		byte(sec.p), byte(sec.p >> 8), byte(sec.p >> 16), byte(sec.p >> 24),
	})
	h.Write(sec.id)
	if sec.r >= 4 && !sec.encryptMetadata {
		h.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	}
	key := h.Sum(nil)

	if sec.r >= 3 {
		for i := 0; i < 50; i++ {
			h.Reset()
			h.Write(key[:sec.keyBytes])
			key = h.Sum(key[:0])
		}
	}
	return key[:sec.keyBytes]
}

// ownerKey derives the RC4 key used for the /O value from the padded owner
// password (algorithm 3, steps a to d).
func (sec *stdSecHandler) ownerKey(paddedOwner []byte) []byte {
	h := md5.New()
	h.Write(paddedOwner)
	key := h.Sum(nil)
	if sec.r >= 3 {
		for i := 0; i < 50; i++ {
			h.Reset()
			h.Write(key)
			key = h.Sum(key[:0])
		}
	}
	return key[:sec.keyBytes]
}

// computeO implements algorithm 3, computing the /O value.
func (sec *stdSecHandler) computeO(ownerPwd, userPwd string) []byte {
	key := sec.ownerKey(padPasswd(ownerPwd))

	o := padPasswd(userPwd)
	c, _ := rc4.NewCipher(key)
	c.XORKeyStream(o, o)
	if sec.r >= 3 {
		o = xorRC4Rounds(key, o, false)
	}
	return o
}

// computeU implements algorithms 4 and 5, computing the /U value for a
// given file encryption key.
func (sec *stdSecHandler) computeU(key []byte) []byte {
	u := make([]byte, 32)
	if sec.r == 2 {
		copy(u, passwdPad)
		c, _ := rc4.NewCipher(key)
		c.XORKeyStream(u, u)
		return u
	}

	h := md5.New()
	h.Write(passwdPad)
	h.Write(sec.id)
	sum := h.Sum(nil)

	c, _ := rc4.NewCipher(key)
	c.XORKeyStream(sum, sum)
	sum = xorRC4Rounds(key, sum, false)
	copy(u, sum)
	return u
}

// xorRC4Rounds applies the 19 extra RC4 rounds of algorithms 3 to 5, with
// the key bytes XORed by the round number.  With reverse set, the rounds
// run backwards to undo the transformation.
func xorRC4Rounds(key, buf []byte, reverse bool) []byte {
	res := append([]byte(nil), buf...)
	tmpKey := make([]byte, len(key))
	for round := 1; round <= 19; round++ {
		i := byte(round)
		if reverse {
			i = byte(20 - round)
		}
		for j, b := range key {
			tmpKey[j] = b ^ i
		}
		c, _ := rc4.NewCipher(tmpKey)
		c.XORKeyStream(res, res)
	}
	return res
}

// authUser implements algorithm 6.  On success the file key is stored in
// sec.key.
func (sec *stdSecHandler) authUser(passwd string) bool {
	if sec.r >= 5 {
		return sec.authUserR6(passwd)
	}
	return sec.authUserPadded(padPasswd(passwd))
}

func (sec *stdSecHandler) authUserPadded(padded []byte) bool {
	key := sec.computeFileKey(padded)
	u := sec.computeU(key)

	n := 32
	if sec.r >= 3 {
		// Only the first 16 bytes of /U are significant for revision 3
		// and later.
		n = 16
	}
	if !bytes.Equal(u[:n], sec.u[:n]) {
		return false
	}
	sec.key = key
	if sec.pwdType == NotDecrypted {
		sec.pwdType = UserPassword
	}
	return true
}

// authOwner implements algorithm 7.  On success the file key is stored in
// sec.key.
func (sec *stdSecHandler) authOwner(passwd string) bool {
	if sec.r >= 5 {
		return sec.authOwnerR6(passwd)
	}

	key := sec.ownerKey(padPasswd(passwd))

	// Decrypt /O to recover the padded user password.
	user := append([]byte(nil), sec.o...)
	if sec.r >= 3 {
		user = xorRC4Rounds(key, user, true)
	}
	c, _ := rc4.NewCipher(key)
	c.XORKeyStream(user, user)

	if !sec.authUserPadded(user) {
		return false
	}
	sec.pwdType = OwnerPassword
	return true
}

// saslPrep normalizes a password for revision 6 as required by RFC 4013,
// truncated to 127 bytes of UTF-8.
func saslPrep(passwd string) []byte {
	prepped, err := stringprep.SASLprep.Prepare(passwd)
	if err != nil {
		prepped = passwd
	}
	pw := []byte(prepped)
	if len(pw) > 127 {
		pw = pw[:127]
	}
	return pw
}

// passwordHash computes the hash used to validate passwords and to derive
// the intermediate keys for revisions 5 and 6.  Revision 5 uses a single
// SHA-256, revision 6 iterates (algorithm 2.B).
func (sec *stdSecHandler) passwordHash(pwd, salt, udata []byte) []byte {
	if sec.r == 5 {
		h := sha256.New()
		h.Write(pwd)
		h.Write(salt)
		h.Write(udata)
		return h.Sum(nil)
	}
	return r6Hash(pwd, salt, udata)
}

// r6Hash implements algorithm 2.B, the iterated hash of revision 6.
func r6Hash(pwd, salt, udata []byte) []byte {
	h := sha256.New()
	h.Write(pwd)
	h.Write(salt)
	h.Write(udata)
	K := h.Sum(nil)

	var K1 []byte
	rounds := 0
	for {
		K1 = K1[:0]
		for i := 0; i < 64; i++ {
			K1 = append(K1, pwd...)
			K1 = append(K1, K...)
			K1 = append(K1, udata...)
		}

		block, _ := aes.NewCipher(K[:16])
		cipher.NewCBCEncrypter(block, K[16:32]).CryptBlocks(K1, K1)

		var sum int
		for _, b := range K1[:16] {
			sum += int(b)
		}
		switch sum % 3 {
		case 0:
			s := sha256.Sum256(K1)
			K = s[:]
		case 1:
			s := sha512.Sum384(K1)
			K = s[:]
		case 2:
			s := sha512.Sum512(K1)
			K = s[:]
		}

		rounds++
		if rounds >= 64 && int(K1[len(K1)-1]) <= rounds-32 {
			break
		}
	}
	return K[:32]
}

// authUserR6 implements algorithm 11 together with the retrieval of the
// file key from /UE (algorithm 2.A).
func (sec *stdSecHandler) authUserR6(passwd string) bool {
	pwd := saslPrep(passwd)
	valSalt := sec.u[32:40]
	keySalt := sec.u[40:48]

	if !bytes.Equal(sec.passwordHash(pwd, valSalt, nil), sec.u[:32]) {
		return false
	}

	ikey := sec.passwordHash(pwd, keySalt, nil)
	key := make([]byte, 32)
	block, _ := aes.NewCipher(ikey)
	cipher.NewCBCDecrypter(block, make([]byte, 16)).CryptBlocks(key, sec.ue)

	if !sec.checkPermsR6(key) {
		return false
	}
	sec.key = key
	if sec.pwdType == NotDecrypted {
		sec.pwdType = UserPassword
	}
	return true
}

// authOwnerR6 implements algorithm 12 together with the retrieval of the
// file key from /OE.
func (sec *stdSecHandler) authOwnerR6(passwd string) bool {
	pwd := saslPrep(passwd)
	valSalt := sec.o[32:40]
	keySalt := sec.o[40:48]

	if !bytes.Equal(sec.passwordHash(pwd, valSalt, sec.u[:48]), sec.o[:32]) {
		return false
	}

	ikey := sec.passwordHash(pwd, keySalt, sec.u[:48])
	key := make([]byte, 32)
	block, _ := aes.NewCipher(ikey)
	cipher.NewCBCDecrypter(block, make([]byte, 16)).CryptBlocks(key, sec.oe)

	if !sec.checkPermsR6(key) {
		return false
	}
	sec.key = key
	sec.pwdType = OwnerPassword
	return true
}

// checkPermsR6 validates the /Perms entry against the file key
// (algorithm 13, reader side).
func (sec *stdSecHandler) checkPermsR6(key []byte) bool {
	if sec.perms == nil {
		return true
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return false
	}
	dec := make([]byte, 16)
	block.Decrypt(dec, sec.perms)
	if string(dec[9:12]) != "adb" {
		return false
	}
	p := uint32(dec[0]) | uint32(dec[1])<<8 | uint32(dec[2])<<16 | uint32(dec[3])<<24
	return p == sec.p
}

// createR6 generates the /U, /UE, /O, /OE and /Perms values for a new
// revision 6 file (algorithms 8 to 10).
func (sec *stdSecHandler) createR6(userPwd, ownerPwd string) error {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return err
	}
	sec.key = key

	salts := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, salts); err != nil {
		return err
	}

	user := saslPrep(userPwd)
	u := make([]byte, 48)
	copy(u[32:40], salts[0:8])  // validation salt
	copy(u[40:48], salts[8:16]) // key salt
	copy(u, r6Hash(user, u[32:40], nil))
	sec.u = u

	ue := make([]byte, 32)
	ikey := r6Hash(user, u[40:48], nil)
	block, _ := aes.NewCipher(ikey)
	cipher.NewCBCEncrypter(block, make([]byte, 16)).CryptBlocks(ue, key)
	sec.ue = ue

	owner := saslPrep(ownerPwd)
	o := make([]byte, 48)
	copy(o[32:40], salts[16:24])
	copy(o[40:48], salts[24:32])
	copy(o, r6Hash(owner, o[32:40], u))
	sec.o = o

	oe := make([]byte, 32)
	ikey = r6Hash(owner, o[40:48], u)
	block, _ = aes.NewCipher(ikey)
	cipher.NewCBCEncrypter(block, make([]byte, 16)).CryptBlocks(oe, key)
	sec.oe = oe

	perms := make([]byte, 16)
	perms[0] = byte(sec.p)
	perms[1] = byte(sec.p >> 8)
	perms[2] = byte(sec.p >> 16)
	perms[3] = byte(sec.p >> 24)
	perms[4] = 0xFF
	perms[5] = 0xFF
	perms[6] = 0xFF
	perms[7] = 0xFF
	if sec.encryptMetadata {
		perms[8] = 'T'
	} else {
		perms[8] = 'F'
	}
	copy(perms[9:12], "adb")
	if _, err := io.ReadFull(rand.Reader, perms[12:16]); err != nil {
		return err
	}
	block, _ = aes.NewCipher(key)
	block.Encrypt(perms, perms)
	sec.perms = perms

	return nil
}

// newEncryptInfo sets up encryption for writing a new file.
func newEncryptInfo(opt *EncryptOptions, id []byte) (*encryptInfo, error) {
	sec, err := createStdSecHandler(opt, id)
	if err != nil {
		return nil, err
	}

	enc := &encryptInfo{sec: sec, id: id}
	switch opt.Scheme {
	case EncryptRC4_40:
		enc.stmF = &cryptFilter{Cipher: cipherRC4, Length: 5}
	case EncryptRC4_128:
		enc.stmF = &cryptFilter{Cipher: cipherRC4, Length: 16}
	case EncryptAES_128:
		enc.stmF = &cryptFilter{Cipher: cipherAESV2, Length: 16}
	case EncryptAES_256:
		enc.stmF = &cryptFilter{Cipher: cipherAESV3, Length: 32}
	}
	enc.strF = enc.stmF
	return enc, nil
}

// AsDict returns the encryption dictionary describing enc, for inclusion
// in the file trailer.
func (enc *encryptInfo) AsDict() Dict {
	sec := enc.sec
	dict := Dict{
		"Filter": Name("Standard"),
		"R":      Integer(sec.r),
		"O":      String(sec.o),
		"U":      String(sec.u),
		"P":      Integer(int32(sec.p)),
	}

	switch sec.r {
	case 2:
		dict["V"] = Integer(1)
	case 3:
		dict["V"] = Integer(2)
		dict["Length"] = Integer(sec.keyBytes * 8)
	case 4, 6:
		cfm := Name("AESV2")
		v := Integer(4)
		if sec.r == 6 {
			cfm = "AESV3"
			v = 5
			dict["OE"] = String(sec.oe)
			dict["UE"] = String(sec.ue)
			dict["Perms"] = String(sec.perms)
		}
		dict["V"] = v
		dict["Length"] = Integer(sec.keyBytes * 8)
		dict["CF"] = Dict{
			"StdCF": Dict{
				"CFM":       cfm,
				"AuthEvent": Name("DocOpen"),
				"Length":    Integer(sec.keyBytes),
			},
		}
		dict["StmF"] = Name("StdCF")
		dict["StrF"] = Name("StdCF")
	}
	return dict
}

var passwdPad = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}
