package main

import (
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mitchellh/mapstructure"

	"github.com/opsec-labs/aa-validation-simulator/pkg/userop"
)

// userOpWire is the JSON shape a caller submits a UserOperation in: every
// numeric/byte field as a 0x-prefixed hex string, matching how an
// eth_sendUserOperation request carries one over JSON-RPC.
type userOpWire struct {
	Sender               string `json:"sender" mapstructure:"Sender"`
	Nonce                string `json:"nonce" mapstructure:"Nonce"`
	InitCode             string `json:"initCode" mapstructure:"InitCode"`
	CallData             string `json:"callData" mapstructure:"CallData"`
	CallGasLimit         string `json:"callGasLimit" mapstructure:"CallGasLimit"`
	VerificationGasLimit string `json:"verificationGasLimit" mapstructure:"VerificationGasLimit"`
	PreVerificationGas   string `json:"preVerificationGas" mapstructure:"PreVerificationGas"`
	MaxFeePerGas         string `json:"maxFeePerGas" mapstructure:"MaxFeePerGas"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas" mapstructure:"MaxPriorityFeePerGas"`
	PaymasterAndData     string `json:"paymasterAndData" mapstructure:"PaymasterAndData"`
	Signature            string `json:"signature" mapstructure:"Signature"`
}

var bigIntType = reflect.TypeOf(&big.Int{})
var bytesType = reflect.TypeOf([]byte{})
var addressType = reflect.TypeOf(common.Address{})

func trimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// hexToBigIntHook lets mapstructure.Decode turn a 0x-hex string directly
// into a *big.Int field.
func hexToBigIntHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != bigIntType || from.Kind() != reflect.String {
		return data, nil
	}
	s := data.(string)
	if s == "" {
		return big.NewInt(0), nil
	}
	n, ok := new(big.Int).SetString(trimHex(s), 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex integer: %q", s)
	}
	return n, nil
}

// hexToBytesHook lets mapstructure.Decode turn a 0x-hex string directly
// into a []byte field.
func hexToBytesHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != bytesType || from.Kind() != reflect.String {
		return data, nil
	}
	s := data.(string)
	if s == "" {
		return []byte{}, nil
	}
	return hexutil.Decode(s)
}

// hexToAddressHook lets mapstructure.Decode turn a 0x-hex string directly
// into a common.Address field.
func hexToAddressHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != addressType || from.Kind() != reflect.String {
		return data, nil
	}
	return common.HexToAddress(data.(string)), nil
}

// toUserOperation decodes a wire DTO into a userop.UserOperation via
// mapstructure, composing the hex-decoding hooks above.
func toUserOperation(w userOpWire) (*userop.UserOperation, error) {
	var op userop.UserOperation

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(hexToBigIntHook, hexToBytesHook, hexToAddressHook),
		Result:     &op,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(w); err != nil {
		return nil, fmt.Errorf("decode user operation: %w", err)
	}
	return &op, nil
}
