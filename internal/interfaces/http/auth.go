package httpinterface

import (
	"bytes"
	"crypto/ecdsa"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

const (
	// AddressHeader carries the address of the signer of a trader request.
	AddressHeader = "X-Amm-Address"
	// NonceHeader carries the nonce of a trader request, unix milliseconds.
	NonceHeader = "X-Amm-Nonce"
	// SignatureHeader carries the EIP-191 signature of a trader request.
	SignatureHeader = "X-Amm-Signature"

	callerKey = "caller"

	nonceWindow = 5 * time.Minute
)

// NewOperatorToken returns a bearer token for the operator API, signed with
// the operator secret. The caller is the account the operator acts as.
func NewOperatorToken(
	secret string, caller common.Address, ttl time.Duration,
) (string, error) {
	now := time.Now()
	claims := jwt.StandardClaims{
		Subject:  caller.Hex(),
		IssuedAt: now.Unix(),
	}
	if ttl > 0 {
		claims.ExpiresAt = now.Add(ttl).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(
		[]byte(secret),
	)
}

// SignRequest returns the signature of a trader request. The signed message
// binds method, path, nonce and body together.
func SignRequest(
	key *ecdsa.PrivateKey, method, path string, nonce int64, body []byte,
) (string, error) {
	hash := accounts.TextHash(requestMessage(method, path, nonce, body))
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return "", err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

func requestMessage(method, path string, nonce int64, body []byte) []byte {
	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "%s\n%s\n%d\n", strings.ToUpper(method), path, nonce)
	buf.Write(body)
	return buf.Bytes()
}

func recoverSigner(
	method, path string, nonce int64, body []byte, signature string,
) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return common.Address{}, ErrUnauthorized
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	hash := accounts.TextHash(requestMessage(method, path, nonce, body))
	pubkey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, ErrUnauthorized
	}
	return crypto.PubkeyToAddress(*pubkey), nil
}

type nonceTracker struct {
	lock *sync.Mutex
	last map[common.Address]int64
}

func newNonceTracker() *nonceTracker {
	return &nonceTracker{
		lock: &sync.Mutex{},
		last: make(map[common.Address]int64),
	}
}

// use accepts the nonce only if greater than the last one used by the signer
// and close enough to the current time.
func (t *nonceTracker) use(signer common.Address, nonce int64) error {
	now := time.Now()
	ts := time.UnixMilli(nonce)
	if ts.Before(now.Add(-nonceWindow)) || ts.After(now.Add(nonceWindow)) {
		return ErrInvalidNonce
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	if nonce <= t.last[signer] {
		return ErrInvalidNonce
	}
	t.last[signer] = nonce
	return nil
}

// traderAuth verifies the signature of trader requests and sets the signer
// as the caller of the request.
func traderAuth(nonces *nonceTracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		address := c.GetHeader(AddressHeader)
		signature := c.GetHeader(SignatureHeader)
		nonce, err := strconv.ParseInt(c.GetHeader(NonceHeader), 10, 64)
		if err != nil || !common.IsHexAddress(address) || signature == "" {
			abortWithError(c, ErrUnauthorized)
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			abortWithError(c, ErrInvalidRequest)
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		signer, err := recoverSigner(
			c.Request.Method, c.Request.URL.Path, nonce, body, signature,
		)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if signer != common.HexToAddress(address) {
			abortWithError(c, ErrUnauthorized)
			return
		}
		if err := nonces.use(signer, nonce); err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(callerKey, signer)
		c.Next()
	}
}

// operatorAuth verifies the bearer token of operator requests and sets its
// subject as the caller of the request.
func operatorAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			abortWithError(c, ErrUnauthorized)
			return
		}

		claims := &jwt.StandardClaims{}
		token, err := jwt.ParseWithClaims(
			strings.TrimPrefix(auth, "Bearer "), claims,
			func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return []byte(secret), nil
			},
		)
		if err != nil || !token.Valid || !common.IsHexAddress(claims.Subject) {
			abortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(callerKey, common.HexToAddress(claims.Subject))
		c.Next()
	}
}

func callerFromContext(c *gin.Context) common.Address {
	return c.MustGet(callerKey).(common.Address)
}
