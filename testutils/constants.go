package testutils

const (
	TestPassphrase = "test-passphrase"

	// EVMTestKey is a well-known secp256k1 development key.
	EVMTestKey     = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	EVMTestAddress = "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"

	EVMDeadAddress = "0x000000000000000000000000000000000000dEaD"

	// SolanaBurnAddress is the incinerator account.
	SolanaBurnAddress = "1nc1nerator11111111111111111111111111111111"
)
