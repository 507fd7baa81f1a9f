package isolate

import (
	lua "github.com/yuin/gopher-lua"

	libcrypt "github.com/nabbar/abel/crypt"
	enchex "github.com/nabbar/abel/encoding/hexa"
	encsha "github.com/nabbar/abel/encoding/sha256"
)

// NewCryptoModule preloads a `crypto` module giving scripts symmetric
// encrypt/decrypt and a hash helper, built on the crypt package's AES-GCM
// wrapper. A fresh key/nonce pair is generated
// per script call to genkey/gennonce; encrypt/decrypt take the hex forms
// back so a script can persist them itself.
func NewCryptoModule() HostModule {
	return func(L *lua.LState) {
		L.PreloadModule("crypto", func(L *lua.LState) int {
			t := L.NewTable()

			L.SetField(t, "genkey", L.NewFunction(func(L *lua.LState) int {
				k, err := libcrypt.GenKey()
				if err != nil {
					L.RaiseError("crypto.genkey: %s", err.Error())
					return 0
				}
				L.Push(lua.LString(enchex.New().Encode(k[:])))
				return 1
			}))

			L.SetField(t, "gennonce", L.NewFunction(func(L *lua.LState) int {
				n, err := libcrypt.GenNonce()
				if err != nil {
					L.RaiseError("crypto.gennonce: %s", err.Error())
					return 0
				}
				L.Push(lua.LString(enchex.New().Encode(n[:])))
				return 1
			}))

			L.SetField(t, "encrypt", L.NewFunction(func(L *lua.LState) int {
				plain := L.CheckString(1)
				keyHex := L.CheckString(2)
				nonceHex := L.CheckString(3)

				c, err := newCrypt(keyHex, nonceHex)
				if err != nil {
					L.RaiseError("crypto.encrypt: %s", err.Error())
					return 0
				}

				L.Push(lua.LString(c.EncodeHex([]byte(plain))))
				return 1
			}))

			L.SetField(t, "decrypt", L.NewFunction(func(L *lua.LState) int {
				cipherHex := L.CheckString(1)
				keyHex := L.CheckString(2)
				nonceHex := L.CheckString(3)

				c, err := newCrypt(keyHex, nonceHex)
				if err != nil {
					L.RaiseError("crypto.decrypt: %s", err.Error())
					return 0
				}

				out, err := c.DecodeHex([]byte(cipherHex))
				if err != nil {
					L.RaiseError("crypto.decrypt: %s", err.Error())
					return 0
				}

				L.Push(lua.LString(out))
				return 1
			}))

			L.SetField(t, "sha256", L.NewFunction(func(L *lua.LState) int {
				s := L.CheckString(1)
				sum := encsha.New().Encode([]byte(s))
				L.Push(lua.LString(enchex.New().Encode(sum)))
				return 1
			}))

			L.Push(t)
			return 1
		})
	}
}

func newCrypt(keyHex, nonceHex string) (libcrypt.Crypt, error) {
	key, err := libcrypt.GetHexKey(keyHex)
	if err != nil {
		return nil, err
	}

	nonce, err := libcrypt.GetHexNonce(nonceHex)
	if err != nil {
		return nil, err
	}

	return libcrypt.New(key, nonce)
}
