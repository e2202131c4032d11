package table

// TableStats is a point-in-time view of one table.
type TableStats struct {
	Code        string `json:"code"`
	State       string `json:"state"`
	Players     int    `json:"players"`
	Queued      int    `json:"queued"`
	Rounds      uint64 `json:"rounds"`
	Wins        uint64 `json:"wins"`
	Losses      uint64 `json:"losses"`
	Pushes      uint64 `json:"pushes"`
	Blackjacks  uint64 `json:"blackjacks"`
	Busts       uint64 `json:"busts"`
	DealerBusts uint64 `json:"dealer_busts"`
}

// RegistryStats is a point-in-time view of every live table.
type RegistryStats struct {
	Tables        int          `json:"tables"`
	TablesCreated uint64       `json:"tables_created"`
	Timeouts      uint64       `json:"timeouts"`
	Disconnects   uint64       `json:"disconnects"`
	Details       []TableStats `json:"details"`
}
