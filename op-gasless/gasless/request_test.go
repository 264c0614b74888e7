package gasless

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/mantlenetworkio/gasless/op-service/signer"
)

const testRequestType = "ForwardRequest(address from,address to,uint256 value,uint256 gas,uint256 nonce,bytes data,uint256 validUntilTime,bytes32 ABCDEFGHIJKLMNOPQRSTGSN)"

func word(b *big.Int) []byte {
	return common.LeftPadBytes(b.Bytes(), 32)
}

func TestForwardRequestDefaults(t *testing.T) {
	from := common.Address{0x01}
	req := testRequest(t, from)
	require.Equal(t, uint64(DefaultGasHint), req.Gas())
	require.Zero(t, req.Value().Sign())
	require.Zero(t, math.MaxBig256.Cmp(req.ValidUntilTime()))
	require.Zero(t, big.NewInt(7).Cmp(req.Nonce()))
	require.Equal(t, from, req.From())
	require.Equal(t, testRecipient, req.To())

	td := req.TypedData()
	require.Equal(t, "ForwardRequest", td.PrimaryType)
	require.Equal(t, testRequestType, string(td.EncodeType(td.PrimaryType)))
	require.Equal(t, "30000", td.Message["gas"])
	require.Equal(t, "0", td.Message["value"])
	require.Equal(t, "7", td.Message["nonce"])
	require.Equal(t, "0xd09de08a", td.Message["data"])
	require.Equal(t, math.MaxBig256.String(), td.Message["validUntilTime"])
	require.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000000", td.Message["ABCDEFGHIJKLMNOPQRSTGSN"])
}

func TestForwardRequestHashes(t *testing.T) {
	from := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	req := testRequest(t, from)
	hashes, err := req.Hashes()
	require.NoError(t, err)

	domainTypeHash := crypto.Keccak256([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	expSeparator := crypto.Keccak256Hash(
		domainTypeHash,
		crypto.Keccak256([]byte("my domain name")),
		crypto.Keccak256([]byte("my domain version")),
		word(big.NewInt(1)),
		common.LeftPadBytes(testForwarder.Bytes(), 32),
	)
	require.Equal(t, expSeparator, hashes.DomainSeparator)

	expTypeHash := crypto.Keccak256Hash([]byte(testRequestType))
	require.Equal(t, expTypeHash, hashes.RequestTypeHash)
	require.Equal(t, make([]byte, 32), hashes.SuffixData)

	structHash := crypto.Keccak256(
		expTypeHash.Bytes(),
		common.LeftPadBytes(from.Bytes(), 32),
		common.LeftPadBytes(testRecipient.Bytes(), 32),
		word(big.NewInt(0)),
		word(big.NewInt(DefaultGasHint)),
		word(big.NewInt(7)),
		crypto.Keccak256([]byte{0xd0, 0x9d, 0xe0, 0x8a}),
		word(math.MaxBig256),
		hashes.SuffixData,
	)
	expDigest := crypto.Keccak256Hash([]byte("\x19\x01"), expSeparator.Bytes(), structHash)
	require.Equal(t, expDigest, hashes.Digest)
}

func TestForwardRequestWithGasCopies(t *testing.T) {
	req := testRequest(t, common.Address{0x01})
	updated := req.WithGas(55_000)
	require.Equal(t, uint64(DefaultGasHint), req.Gas())
	require.Equal(t, uint64(55_000), updated.Gas())
	require.Equal(t, "55000", updated.TypedData().Message["gas"])

	before, err := req.Hashes()
	require.NoError(t, err)
	after, err := updated.Hashes()
	require.NoError(t, err)
	require.NotEqual(t, before.Digest, after.Digest)
	require.Equal(t, before.DomainSeparator, after.DomainSeparator)
}

func TestForwardRequestOptions(t *testing.T) {
	req := testRequest(t, common.Address{0x01}, WithGasHint(100_000), WithValue(big.NewInt(5)), WithValidUntilTime(big.NewInt(1_700_000_000)))
	require.Equal(t, uint64(100_000), req.Gas())
	require.Zero(t, big.NewInt(5).Cmp(req.Value()))
	require.Zero(t, big.NewInt(1_700_000_000).Cmp(req.ValidUntilTime()))
}

func TestForwardRequestIsolatedFromInputs(t *testing.T) {
	data := []byte{0xd0, 0x9d, 0xe0, 0x8a}
	nonce := big.NewInt(7)
	domain := testDomain(1)
	ext := TypeExtension{TypeName: "ForwardRequest", TypeSuffixData: testSuffix}
	req, err := NewForwardRequest(domain, common.Address{0x01}, testRecipient, nonce, data, ext)
	require.NoError(t, err)

	data[0] = 0xff
	nonce.SetInt64(8)
	domain.ChainID.SetInt64(2)
	require.Equal(t, "0xd09de08a", req.TypedData().Message["data"])
	require.Equal(t, "7", req.TypedData().Message["nonce"])
	require.Zero(t, big.NewInt(1).Cmp(req.Domain().ChainID))
}

type requestArgs struct {
	domain   Domain
	from, to common.Address
	nonce    *big.Int
	ext      TypeExtension
}

func TestNewForwardRequestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mod    func(a *requestArgs)
		opts   []RequestOption
		expErr error
		msg    string
	}{
		{name: "empty domain name", mod: func(a *requestArgs) { a.domain.Name = "" }, expErr: ErrInput, msg: "domain name"},
		{name: "empty domain version", mod: func(a *requestArgs) { a.domain.Version = "" }, expErr: ErrInput, msg: "domain version"},
		{name: "missing chain id", mod: func(a *requestArgs) { a.domain.ChainID = nil }, expErr: ErrInput, msg: "chain id"},
		{name: "missing forwarder", mod: func(a *requestArgs) { a.domain.VerifyingContract = common.Address{} }, expErr: ErrInput, msg: "forwarder"},
		{name: "missing signer", mod: func(a *requestArgs) { a.from = common.Address{} }, expErr: ErrInput, msg: "signer"},
		{name: "missing recipient", mod: func(a *requestArgs) { a.to = common.Address{} }, expErr: ErrInput, msg: "recipient"},
		{name: "missing nonce", mod: func(a *requestArgs) { a.nonce = nil }, expErr: ErrInput, msg: "nonce"},
		{name: "zero gas", opts: []RequestOption{WithGasHint(0)}, expErr: ErrInput, msg: "gas"},
		{name: "type name with spaces", mod: func(a *requestArgs) { a.ext.TypeName = "my type" }, expErr: ErrInput, msg: "type name"},
		{name: "domain type name", mod: func(a *requestArgs) { a.ext.TypeName = "EIP712Domain" }, expErr: ErrInput, msg: "type name"},
		{name: "unterminated suffix", mod: func(a *requestArgs) { a.ext.TypeSuffixData = "bytes32 X" }, expErr: ErrEncoding, msg: "must end with ')'"},
		{name: "empty suffix", mod: func(a *requestArgs) { a.ext.TypeSuffixData = ")" }, expErr: ErrEncoding, msg: "declares no fields"},
		{name: "suffix without name", mod: func(a *requestArgs) { a.ext.TypeSuffixData = "bytes32)" }, expErr: ErrEncoding, msg: "is not '<type> <name>'"},
		{name: "unknown suffix type", mod: func(a *requestArgs) { a.ext.TypeSuffixData = "uint7 x)" }, expErr: ErrEncoding, msg: "unsupported type"},
		{name: "suffix shadows field", mod: func(a *requestArgs) { a.ext.TypeSuffixData = "uint256 nonce)" }, expErr: ErrEncoding, msg: "duplicate field"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := requestArgs{
				domain: testDomain(1),
				from:   common.Address{0x01},
				to:     testRecipient,
				nonce:  big.NewInt(7),
				ext:    TypeExtension{TypeName: "ForwardRequest", TypeSuffixData: testSuffix},
			}
			if tt.mod != nil {
				tt.mod(&a)
			}
			_, err := NewForwardRequest(a.domain, a.from, a.to, a.nonce, nil, a.ext, tt.opts...)
			require.ErrorIs(t, err, tt.expErr)
			require.ErrorContains(t, err, tt.msg)
		})
	}
}

func TestTypeSuffixWithSeveralFields(t *testing.T) {
	ext := TypeExtension{TypeName: "RelayRequest", TypeSuffixData: "address relayWorker, uint64 fee,bool paid, string note, bytes4 tag)"}
	req, err := NewForwardRequest(testDomain(1), common.Address{0x01}, testRecipient, big.NewInt(0), nil, ext)
	require.NoError(t, err)

	td := req.TypedData()
	require.Equal(t,
		"RelayRequest(address from,address to,uint256 value,uint256 gas,uint256 nonce,bytes data,uint256 validUntilTime,address relayWorker,uint64 fee,bool paid,string note,bytes4 tag)",
		string(td.EncodeType(td.PrimaryType)))
	require.Equal(t, "0x", td.Message["data"])

	hashes, err := req.Hashes()
	require.NoError(t, err)
	require.Len(t, hashes.SuffixData, 5*32)
	// the empty string is encoded by its hash, all other zero values as a zero word
	require.Equal(t, crypto.Keccak256([]byte{}), hashes.SuffixData[3*32:4*32])
	require.Equal(t, make([]byte, 32), hashes.SuffixData[4*32:])
}

// A signature only verifies against the exact domain and type it was made for.
func TestSignatureDivergesWhenFieldPerturbed(t *testing.T) {
	s := testSigner(t)
	build := func(d Domain, ext TypeExtension) ForwardRequest {
		req, err := NewForwardRequest(d, s.Address(), testRecipient, big.NewInt(7), []byte{0xd0, 0x9d, 0xe0, 0x8a}, ext)
		require.NoError(t, err)
		return req
	}
	registeredDomain := testDomain(1)
	registeredExt := TypeExtension{TypeName: "ForwardRequest", TypeSuffixData: testSuffix}
	registered := build(registeredDomain, registeredExt)

	verify := func(req ForwardRequest) common.Address {
		sig, err := s.SignTypedData(context.Background(), req.TypedData())
		require.NoError(t, err)
		addr, err := signer.RecoverTypedDataSigner(registered.TypedData(), sig)
		require.NoError(t, err)
		return addr
	}
	require.Equal(t, s.Address(), verify(registered))

	perturbations := map[string]func(d *Domain, e *TypeExtension){
		"domain name":      func(d *Domain, _ *TypeExtension) { d.Name += "x" },
		"domain version":   func(d *Domain, _ *TypeExtension) { d.Version = "2" },
		"chain id":         func(d *Domain, _ *TypeExtension) { d.ChainID = big.NewInt(2) },
		"forwarder":        func(d *Domain, _ *TypeExtension) { d.VerifyingContract = common.Address{0x02} },
		"type name":        func(_ *Domain, e *TypeExtension) { e.TypeName = "ForwardRequestV2" },
		"type suffix data": func(_ *Domain, e *TypeExtension) { e.TypeSuffixData = "bytes32 ABCDEFGHIJKLMNOPQRSTGSM)" },
	}
	for name, perturb := range perturbations {
		t.Run(name, func(t *testing.T) {
			d, e := testDomain(1), registeredExt
			perturb(&d, &e)
			require.NotEqual(t, s.Address(), verify(build(d, e)))
		})
	}
}
