package main

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	httpinterface "github.com/tdex-network/ctf-amm/internal/interfaces/http"
)

const (
	requestTimeout = 30 * time.Second
	operatorTTL    = time.Minute
)

// client talks to the REST API of ammd. Trader requests are signed with the
// configured private key, operator ones carry a short lived bearer token.
type client struct {
	http           *resty.Client
	operatorSecret string
	operator       common.Address
	key            *ecdsa.PrivateKey
}

func newClientFromState(state map[string]string) (*client, error) {
	host := state[rpcServerKey]
	if host == "" {
		return nil, errors.New("rpcserver not set: try 'config init'")
	}

	c := &client{
		http: resty.New().
			SetBaseURL(host).
			SetTimeout(requestTimeout).
			SetHeader("Content-Type", "application/json"),
		operatorSecret: state[operatorSecretKey],
	}

	if addr := state[operatorAddressKey]; addr != "" {
		if !common.IsHexAddress(addr) {
			return nil, errors.Errorf("invalid operator address %q", addr)
		}
		c.operator = common.HexToAddress(addr)
	}

	if hexKey := state[privateKeyKey]; hexKey != "" {
		key, err := crypto.HexToECDSA(hexKey)
		if err != nil {
			return nil, errors.Wrap(err, "invalid private key")
		}
		c.key = key
	}

	return c, nil
}

func getClient() (*client, error) {
	state, err := getState()
	if err != nil {
		return nil, err
	}
	return newClientFromState(state)
}

func (c *client) address() (common.Address, error) {
	if c.key == nil {
		return common.Address{}, errors.New("private_key not set: try 'keygen --save'")
	}
	return crypto.PubkeyToAddress(c.key.PublicKey), nil
}

// get sends an unauthenticated GET request.
func (c *client) get(
	ctx context.Context, path string, query map[string]string, out interface{},
) error {
	req := c.http.R().SetContext(ctx).SetQueryParams(query)
	return send(req, http.MethodGet, path, out)
}

// public sends an unauthenticated request with the given body.
func (c *client) public(
	ctx context.Context, method, path string, body, out interface{},
) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	return send(req, method, path, out)
}

// signed sends a trader request, signed by the configured private key.
func (c *client) signed(
	ctx context.Context, method, path string, body, out interface{},
) error {
	if c.key == nil {
		return errors.New("private_key not set: try 'keygen --save'")
	}

	payload := []byte{}
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		payload = buf
	}

	nonce := time.Now().UnixMilli()
	sig, err := httpinterface.SignRequest(c.key, method, path, nonce, payload)
	if err != nil {
		return errors.Wrap(err, "sign request")
	}
	addr := crypto.PubkeyToAddress(c.key.PublicKey)

	req := c.http.R().
		SetContext(ctx).
		SetHeader(httpinterface.AddressHeader, addr.Hex()).
		SetHeader(httpinterface.NonceHeader, strconv.FormatInt(nonce, 10)).
		SetHeader(httpinterface.SignatureHeader, sig).
		SetBody(payload)
	return send(req, method, path, out)
}

// operator sends a request to the operator API.
func (c *client) operatorCall(
	ctx context.Context, method, path string, body, out interface{},
) error {
	if c.operatorSecret == "" {
		return errors.New("operator_secret not set: try 'config set operator_secret'")
	}
	caller := c.operator
	if caller == (common.Address{}) && c.key != nil {
		caller = crypto.PubkeyToAddress(c.key.PublicKey)
	}
	if caller == (common.Address{}) {
		return errors.New("operator_address not set: try 'config set operator_address'")
	}

	token, err := httpinterface.NewOperatorToken(c.operatorSecret, caller, operatorTTL)
	if err != nil {
		return errors.Wrap(err, "create operator token")
	}

	req := c.http.R().SetContext(ctx).SetAuthToken(token)
	if body != nil {
		req.SetBody(body)
	}
	return send(req, method, path, out)
}

func send(req *resty.Request, method, path string, out interface{}) error {
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	if resp.IsError() {
		reply := struct {
			Error string `json:"error"`
		}{}
		if json.Unmarshal(resp.Body(), &reply) == nil && reply.Error != "" {
			return errors.Errorf("%s: %s", resp.Status(), reply.Error)
		}
		return errors.Errorf("http non-2xx: %s", resp.Body())
	}
	return nil
}
