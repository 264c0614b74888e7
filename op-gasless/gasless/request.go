package gasless

import (
	"fmt"
	"math/big"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// DefaultGasHint is the gas placed in a request before estimation replaces it.
const DefaultGasHint = 30_000

// MaxValidUntilTime marks a request that never expires.
var MaxValidUntilTime = new(big.Int).Set(math.MaxBig256)

var (
	domainTypes = []apitypes.Type{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	}
	// forwardRequestTypes are the generic fields every registered request type starts with.
	forwardRequestTypes = []apitypes.Type{
		{Name: "from", Type: "address"},
		{Name: "to", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "gas", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "data", Type: "bytes"},
		{Name: "validUntilTime", Type: "uint256"},
	}
	identifierRegex = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
)

// Domain is the EIP-712 domain the forwarder registered.
type Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// TypeExtension names the request type registered with the forwarder.
// TypeSuffixData is the registered suffix, e.g. "bytes32 ABCDEFGHIJKLMNOPQRSTGSN)".
type TypeExtension struct {
	TypeName       string
	TypeSuffixData string
}

// ForwardRequest is the typed message a forwarder verifies before executing the call.
// It is a value: modifications return a new request.
type ForwardRequest struct {
	domain         Domain
	from           common.Address
	to             common.Address
	value          *big.Int
	gas            uint64
	nonce          *big.Int
	data           []byte
	validUntilTime *big.Int
	ext            TypeExtension
	suffixFields   []apitypes.Type
}

type RequestOption func(r *ForwardRequest)

// WithGasHint sets the gas the request is built with.
func WithGasHint(gas uint64) RequestOption {
	return func(r *ForwardRequest) {
		r.gas = gas
	}
}

// WithValue sets the native value forwarded with the call.
func WithValue(value *big.Int) RequestOption {
	return func(r *ForwardRequest) {
		r.value = value
	}
}

// WithValidUntilTime sets the unix time after which the forwarder rejects the request.
func WithValidUntilTime(t *big.Int) RequestOption {
	return func(r *ForwardRequest) {
		r.validUntilTime = t
	}
}

// NewForwardRequest assembles a request for the forwarder at domain.VerifyingContract
// to call to with data on behalf of from.
func NewForwardRequest(domain Domain, from, to common.Address, nonce *big.Int, data []byte, ext TypeExtension, opts ...RequestOption) (ForwardRequest, error) {
	r := ForwardRequest{
		domain: Domain{
			Name:              domain.Name,
			Version:           domain.Version,
			VerifyingContract: domain.VerifyingContract,
		},
		from:           from,
		to:             to,
		value:          new(big.Int),
		gas:            DefaultGasHint,
		data:           common.CopyBytes(data),
		validUntilTime: MaxValidUntilTime,
		ext:            ext,
	}
	if domain.ChainID != nil {
		r.domain.ChainID = new(big.Int).Set(domain.ChainID)
	}
	if nonce != nil {
		r.nonce = new(big.Int).Set(nonce)
	}
	for _, opt := range opts {
		opt(&r)
	}
	if err := r.check(); err != nil {
		return ForwardRequest{}, err
	}
	fields, err := parseTypeSuffix(ext.TypeSuffixData)
	if err != nil {
		return ForwardRequest{}, err
	}
	r.suffixFields = fields
	r.value = new(big.Int).Set(r.value)
	r.validUntilTime = new(big.Int).Set(r.validUntilTime)
	return r, nil
}

func (r *ForwardRequest) check() error {
	switch {
	case r.domain.Name == "":
		return fmt.Errorf("%w: domain name is required", ErrInput)
	case r.domain.Version == "":
		return fmt.Errorf("%w: domain version is required", ErrInput)
	case r.domain.ChainID == nil || r.domain.ChainID.Sign() <= 0:
		return fmt.Errorf("%w: chain id must be positive", ErrInput)
	case r.domain.VerifyingContract == (common.Address{}):
		return fmt.Errorf("%w: forwarder address is required", ErrInput)
	case r.from == (common.Address{}):
		return fmt.Errorf("%w: signer address is required", ErrInput)
	case r.to == (common.Address{}):
		return fmt.Errorf("%w: recipient address is required", ErrInput)
	case r.nonce == nil || r.nonce.Sign() < 0:
		return fmt.Errorf("%w: nonce must not be negative", ErrInput)
	case r.gas == 0:
		return fmt.Errorf("%w: gas must not be zero", ErrInput)
	case r.value == nil || r.value.Sign() < 0:
		return fmt.Errorf("%w: value must not be negative", ErrInput)
	case r.validUntilTime == nil || r.validUntilTime.Sign() < 0 || r.validUntilTime.BitLen() > 256:
		return fmt.Errorf("%w: valid-until time must fit in 256 bits", ErrInput)
	case !identifierRegex.MatchString(r.ext.TypeName) || r.ext.TypeName == "EIP712Domain":
		return fmt.Errorf("%w: invalid type name %q", ErrInput, r.ext.TypeName)
	}
	return nil
}

// parseTypeSuffix turns "bytes32 ABCDEFGHIJKLMNOPQRSTGSN)" into the extra fields of the request type.
func parseTypeSuffix(suffix string) ([]apitypes.Type, error) {
	body, ok := strings.CutSuffix(suffix, ")")
	if !ok {
		return nil, fmt.Errorf("%w: type suffix data %q must end with ')'", ErrEncoding, suffix)
	}
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: type suffix data %q declares no fields", ErrEncoding, suffix)
	}
	var fields []apitypes.Type
	seen := make(map[string]bool)
	for _, f := range forwardRequestTypes {
		seen[f.Name] = true
	}
	for _, entry := range strings.Split(body, ",") {
		parts := strings.Fields(entry)
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: type suffix entry %q is not '<type> <name>'", ErrEncoding, entry)
		}
		typ, name := parts[0], parts[1]
		if !isSuffixType(typ) {
			return nil, fmt.Errorf("%w: unsupported type %q in type suffix", ErrEncoding, typ)
		}
		if !identifierRegex.MatchString(name) {
			return nil, fmt.Errorf("%w: invalid field name %q in type suffix", ErrEncoding, name)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate field %q in type suffix", ErrEncoding, name)
		}
		seen[name] = true
		fields = append(fields, apitypes.Type{Name: name, Type: typ})
	}
	return fields, nil
}

func isSuffixType(typ string) bool {
	switch typ {
	case "address", "bool", "string", "bytes":
		return true
	}
	if n, ok := strings.CutPrefix(typ, "bytes"); ok {
		size, err := strconv.Atoi(n)
		return err == nil && n == strconv.Itoa(size) && size >= 1 && size <= 32
	}
	for _, prefix := range []string{"uint", "int"} {
		if n, ok := strings.CutPrefix(typ, prefix); ok {
			size, err := strconv.Atoi(n)
			return err == nil && n == strconv.Itoa(size) && size >= 8 && size <= 256 && size%8 == 0
		}
	}
	return false
}

// zeroValue is the message value of an extension field, in the form apitypes encodes.
func zeroValue(typ string) any {
	switch typ {
	case "address":
		return common.Address{}.Hex()
	case "bool":
		return false
	case "string":
		return ""
	case "bytes":
		return "0x"
	}
	if n, ok := strings.CutPrefix(typ, "bytes"); ok {
		size, _ := strconv.Atoi(n)
		return hexutil.Encode(make([]byte, size))
	}
	return "0"
}

func (r ForwardRequest) Domain() Domain {
	d := r.domain
	d.ChainID = new(big.Int).Set(r.domain.ChainID)
	return d
}

func (r ForwardRequest) From() common.Address         { return r.from }
func (r ForwardRequest) To() common.Address           { return r.to }
func (r ForwardRequest) Value() *big.Int              { return new(big.Int).Set(r.value) }
func (r ForwardRequest) Gas() uint64                  { return r.gas }
func (r ForwardRequest) Nonce() *big.Int              { return new(big.Int).Set(r.nonce) }
func (r ForwardRequest) Data() []byte                 { return common.CopyBytes(r.data) }
func (r ForwardRequest) ValidUntilTime() *big.Int     { return new(big.Int).Set(r.validUntilTime) }
func (r ForwardRequest) TypeExtension() TypeExtension { return r.ext }

// WithGas returns a copy of the request with the gas replaced.
func (r ForwardRequest) WithGas(gas uint64) ForwardRequest {
	r.gas = gas
	return r
}

// TypedData renders the request as EIP-712 typed data.
// Numbers are decimal strings, addresses checksummed hex and bytes 0x-prefixed hex.
func (r ForwardRequest) TypedData() apitypes.TypedData {
	message := apitypes.TypedDataMessage{
		"from":           r.from.Hex(),
		"to":             r.to.Hex(),
		"value":          r.value.String(),
		"gas":            strconv.FormatUint(r.gas, 10),
		"nonce":          r.nonce.String(),
		"data":           hexutil.Encode(r.data),
		"validUntilTime": r.validUntilTime.String(),
	}
	for _, f := range r.suffixFields {
		message[f.Name] = zeroValue(f.Type)
	}
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": slices.Clone(domainTypes),
			r.ext.TypeName: slices.Concat(forwardRequestTypes, r.suffixFields),
		},
		PrimaryType: r.ext.TypeName,
		Domain: apitypes.TypedDataDomain{
			Name:              r.domain.Name,
			Version:           r.domain.Version,
			ChainId:           (*math.HexOrDecimal256)(new(big.Int).Set(r.domain.ChainID)),
			VerifyingContract: r.domain.VerifyingContract.Hex(),
		},
		Message: message,
	}
}

// RequestHashes are the values the forwarder's execute call takes next to the request itself.
type RequestHashes struct {
	// Digest is the EIP-712 hash that gets signed.
	Digest          common.Hash
	DomainSeparator common.Hash
	RequestTypeHash common.Hash
	// SuffixData is the encoding of the extension fields, appended by the forwarder when it rebuilds the struct hash.
	SuffixData []byte
}

func (r ForwardRequest) Hashes() (RequestHashes, error) {
	td := r.TypedData()
	digest, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return RequestHashes{}, fmt.Errorf("%w: typed data hash: %w", ErrEncoding, err)
	}
	domainSeparator, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return RequestHashes{}, fmt.Errorf("%w: domain separator: %w", ErrEncoding, err)
	}
	encoded, err := td.EncodeData(td.PrimaryType, td.Message, 1)
	if err != nil {
		return RequestHashes{}, fmt.Errorf("%w: request encoding: %w", ErrEncoding, err)
	}
	suffixLen := 32 * len(r.suffixFields)
	return RequestHashes{
		Digest:          common.BytesToHash(digest),
		DomainSeparator: common.BytesToHash(domainSeparator),
		RequestTypeHash: common.BytesToHash(td.TypeHash(td.PrimaryType)),
		SuffixData:      common.CopyBytes(encoded[len(encoded)-suffixLen:]),
	}, nil
}
