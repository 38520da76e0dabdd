package contract

// ArbitrageABI is the subset of the arbitrage contract the monitor uses.
const ArbitrageABI = `[
	{
		"inputs": [
			{"internalType": "address[]", "name": "path", "type": "address[]"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"}
		],
		"name": "executeArbitrage",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": false, "internalType": "address", "name": "asset", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"},
			{"indexed": false, "internalType": "uint256", "name": "profit", "type": "uint256"}
		],
		"name": "ArbitrageExecuted",
		"type": "event"
	}
]`

const (
	methodExecute = "executeArbitrage"
	eventExecuted = "ArbitrageExecuted"
)
