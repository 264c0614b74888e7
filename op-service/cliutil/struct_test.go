package cliutil

import (
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

type textUnmarshalerThing struct {
	text string
}

func (t *textUnmarshalerThing) UnmarshalText(text []byte) error {
	t.text = string(text)
	return nil
}

func TestPopulateStruct(t *testing.T) {
	type testStruct struct {
		Str             string                `cli:"str"`
		Bool            bool                  `cli:"bool"`
		Int             int                   `cli:"int"`
		Uint64          uint64                `cli:"uint64"`
		Duration        time.Duration         `cli:"duration"`
		Address         common.Address        `cli:"address"`
		Big             *big.Int              `cli:"big"`
		Amount          *uint256.Int          `cli:"amount"`
		HexAmount       *uint256.Int          `cli:"hex-amount,hex"`
		HexBig          *big.Int              `cli:"hex-big,hex"`
		TextUnmarshaler *textUnmarshalerThing `cli:"text-unmarshaler"`
		NotTagged       string
	}

	tests := []struct {
		name   string
		args   []string
		exp    testStruct
		expErr string
	}{
		{
			name: "all flags",
			args: []string{
				"--str=test",
				"--bool",
				"--int=1",
				"--uint64=3",
				"--duration=150ms",
				fmt.Sprintf("--address=%s", common.HexToAddress("0x42")),
				"--big=42",
				"--amount=0x123456789",
				"--hex-amount=100",
				"--hex-big=0x2a",
				"--text-unmarshaler=hello",
			},
			exp: testStruct{
				Str:             "test",
				Bool:            true,
				Int:             1,
				Uint64:          3,
				Duration:        150 * time.Millisecond,
				Address:         common.HexToAddress("0x42"),
				Big:             big.NewInt(42),
				Amount:          uint256.NewInt(0x123456789),
				HexAmount:       uint256.NewInt(0x100),
				HexBig:          big.NewInt(42),
				TextUnmarshaler: &textUnmarshalerThing{text: "hello"},
			},
		},
		{
			name: "no flags",
			args: []string{},
			exp:  testStruct{},
		},
		{
			name:   "invalid address flag",
			args:   []string{"--address=not-an-address"},
			expErr: "invalid address",
		},
		{
			name:   "invalid amount",
			args:   []string{"--amount=0xzz"},
			expErr: "error parsing bigint flag",
		},
		{
			name:   "amount overflow",
			args:   []string{"--amount=0x1" + "0000000000000000000000000000000000000000000000000000000000000000"},
			expErr: "does not fit in 256 bits",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &cli.App{
				Name: "test",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "str"},
					&cli.BoolFlag{Name: "bool"},
					&cli.IntFlag{Name: "int"},
					&cli.Uint64Flag{Name: "uint64"},
					&cli.DurationFlag{Name: "duration"},
					&cli.StringFlag{Name: "address"},
					&cli.StringFlag{Name: "big"},
					&cli.StringFlag{Name: "amount"},
					&cli.StringFlag{Name: "hex-amount"},
					&cli.StringFlag{Name: "hex-big"},
					&cli.StringFlag{Name: "text-unmarshaler"},
				},
				Action: func(cliCtx *cli.Context) error {
					ts := testStruct{}

					if tt.expErr == "" {
						require.NoError(t, PopulateStruct(&ts, cliCtx))
						require.EqualValues(t, tt.exp, ts)
					} else {
						require.ErrorContains(t, PopulateStruct(&ts, cliCtx), tt.expErr)
					}
					return nil
				},
			}

			require.NoError(t, app.Run(append([]string{"program-goes-here"}, tt.args...)))
		})
	}
}

func TestPopulateStructRejectsNonPointer(t *testing.T) {
	app := &cli.App{
		Name: "test",
		Action: func(cliCtx *cli.Context) error {
			require.ErrorContains(t, PopulateStruct(struct{}{}, cliCtx), "pointer to struct")
			return nil
		},
	}
	require.NoError(t, app.Run([]string{"program-goes-here"}))
}
