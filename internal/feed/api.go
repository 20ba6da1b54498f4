package feed

// rawMachine models one element of the upstream API's response array.
type rawMachine struct {
	ID            string `json:"id"`
	MachineName   string `json:"machineName"`
	MachineNumber string `json:"machineNumber"`
	MachineType   struct {
		IsWasher bool `json:"isWasher"`
		IsDryer  bool `json:"isDryer"`
	} `json:"machineType"`
	// CurrentStatus is itself a JSON document encoded as a string.
	CurrentStatus string `json:"currentStatus"`
}

// rawStatus is the decoded form of rawMachine.CurrentStatus.
type rawStatus struct {
	StatusID         string `json:"statusId"`
	RemainingSeconds *int   `json:"remainingSeconds"`
	IsDoorOpen       *bool  `json:"isDoorOpen"`
	SelectedCycle    *struct {
		Name string `json:"name"`
	} `json:"selectedCycle"`
	RemainingVend *int `json:"remainingVend"`
}
