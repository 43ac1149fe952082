// Package artifact models compiled contract artifacts.
//
// An artifact is the JSON file a Solidity toolchain writes per contract
// (Truffle and Hardhat style, plus the Foundry layout where bytecode is an
// object). Only the fields the harness needs are decoded:
//
//	{
//	  "contractName": "SortedDoublyLLFixture",
//	  "sourcePath": "contracts/test/SortedDoublyLLFixture.sol",
//	  "abi": [{"type": "function", "name": "testInsert", ...}],
//	  "bytecode": "0x6080...__SortedDoublyLL__________________..."
//	}
//
// Bytecode is kept as a hex string so library placeholders can be rewritten
// in place before deployment.
package artifact
