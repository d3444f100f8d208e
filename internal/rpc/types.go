package rpc

// Method names understood by the node's JSON-RPC endpoint
const (
	MethodGetStatus      = "get_status"
	MethodGetHealth      = "get_health"
	MethodGetChainInfo   = "get_chain_info"
	MethodGetPeers       = "get_peers"
	MethodGetNetworkInfo = "get_network_info"
	MethodGetSyncStatus  = "get_sync_status"
)

// NodeStatus is the node's top-level status summary
type NodeStatus struct {
	Network       string `json:"network"`
	Height        uint64 `json:"height"`
	Peers         int    `json:"peers"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// HealthStatus reports node health with per-subsystem detail
type HealthStatus struct {
	Healthy bool              `json:"healthy"`
	Details map[string]string `json:"details,omitempty"`
}

// ChainInfo describes the best chain known to the node
type ChainInfo struct {
	Height        uint64  `json:"height"`
	BestBlockHash string  `json:"best_block_hash"`
	Difficulty    float64 `json:"difficulty"`
}

// Peer describes one connected peer
type Peer struct {
	Addr      string `json:"addr"`
	Direction string `json:"direction"` // "inbound" or "outbound"
	Version   string `json:"version"`
}

// NetworkInfo summarizes the node's peer-to-peer connectivity
type NetworkInfo struct {
	Network    string `json:"network"`
	ListenAddr string `json:"listen_addr"`
	PeerCount  int    `json:"peer_count"`
	Inbound    int    `json:"inbound"`
	Outbound   int    `json:"outbound"`
}

// SyncStatus reports block synchronization progress
type SyncStatus struct {
	CurrentHeight uint64 `json:"current_height"`
	TargetHeight  uint64 `json:"target_height"`
	Synced        bool   `json:"synced"`
}
