package main

import (
	"bytes"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const userOpSchemaSrc = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": [
		"sender", "nonce", "initCode", "callData", "callGasLimit",
		"verificationGasLimit", "preVerificationGas", "maxFeePerGas",
		"maxPriorityFeePerGas", "paymasterAndData", "signature"
	],
	"properties": {
		"sender": {"type": "string", "pattern": "^0x[0-9a-fA-F]{40}$"},
		"nonce": {"type": "string", "pattern": "^0x[0-9a-fA-F]*$"},
		"initCode": {"type": "string", "pattern": "^0x[0-9a-fA-F]*$"},
		"callData": {"type": "string", "pattern": "^0x[0-9a-fA-F]*$"},
		"callGasLimit": {"type": "string", "pattern": "^0x[0-9a-fA-F]*$"},
		"verificationGasLimit": {"type": "string", "pattern": "^0x[0-9a-fA-F]*$"},
		"preVerificationGas": {"type": "string", "pattern": "^0x[0-9a-fA-F]*$"},
		"maxFeePerGas": {"type": "string", "pattern": "^0x[0-9a-fA-F]*$"},
		"maxPriorityFeePerGas": {"type": "string", "pattern": "^0x[0-9a-fA-F]*$"},
		"paymasterAndData": {"type": "string", "pattern": "^0x[0-9a-fA-F]*$"},
		"signature": {"type": "string", "pattern": "^0x[0-9a-fA-F]*$"}
	}
}`

var userOpSchema = compileUserOpSchema()

func compileUserOpSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("useroperation.json", bytes.NewReader([]byte(userOpSchemaSrc))); err != nil {
		panic(fmt.Errorf("compile user operation schema: %w", err))
	}
	return c.MustCompile("useroperation.json")
}

// validateUserOpWire checks a raw decoded JSON value against the
// UserOperation wire schema before it is ever handed to mapstructure, so a
// malformed request fails with a field-level message instead of a panic or
// an opaque hex-decode error.
func validateUserOpWire(raw any) error {
	if err := userOpSchema.Validate(raw); err != nil {
		return fmt.Errorf("invalid user operation: %w", err)
	}
	return nil
}
