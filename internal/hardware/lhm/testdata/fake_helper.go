// fake_helper.go simulates the LHM helper daemon protocol for tests.
// It is compiled and run by the lhm package tests.
//
// Behavior is controlled by the FAKE_HELPER_MODE env var:
//
//	"normal"    - Answer every request (default)
//	"crash"     - Answer the first request then exit on the next
//	"slow"      - Read stdin but never respond
//	"error"     - Answer the first request, then report an error for every other
//	"open_fail" - Answer the first request with an error and exit
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

type sensor struct {
	Identifier string  `json:"Identifier"`
	Name       string  `json:"Name"`
	SensorType string  `json:"SensorType"`
	Value      float64 `json:"Value"`
}

type node struct {
	HardwareType string   `json:"HardwareType"`
	Identifier   string   `json:"Identifier"`
	Name         string   `json:"Name"`
	Sensors      []sensor `json:"Sensors"`
	SubHardware  []node   `json:"SubHardware,omitempty"`
}

type request struct {
	Command    string   `json:"Command"`
	Subsystems []string `json:"Subsystems"`
	Identifier string   `json:"Identifier"`
}

type response struct {
	Hardware []node   `json:"Hardware,omitempty"`
	Sensors  []sensor `json:"Sensors,omitempty"`
	Error    string   `json:"Error,omitempty"`
}

var tree = map[string]node{
	"Cpu": {
		HardwareType: "Cpu", Identifier: "/intelcpu/0", Name: "Intel Core i7",
	},
	"Motherboard": {
		HardwareType: "Motherboard", Identifier: "/motherboard", Name: "Z790",
		SubHardware: []node{
			{HardwareType: "SuperIO", Identifier: "/lpc/nct6798d", Name: "Nuvoton NCT6798D"},
		},
	},
}

var readings = map[string][]sensor{
	"/intelcpu/0": {
		{Identifier: "/intelcpu/0/temperature/0", Name: "CPU Core #1", SensorType: "Temperature", Value: 48},
		{Identifier: "/intelcpu/0/temperature/8", Name: "CPU Package", SensorType: "Temperature", Value: 57.8},
		{Identifier: "/intelcpu/0/load/0", Name: "CPU Total", SensorType: "Load", Value: 12},
	},
	"/motherboard": {},
	"/lpc/nct6798d": {
		{Identifier: "/lpc/nct6798d/fan/1", Name: "Fan #2", SensorType: "Fan", Value: 1200},
		{Identifier: "/lpc/nct6798d/control/1", Name: "Fan Control #2", SensorType: "Control", Value: 45.5},
		{Identifier: "/lpc/nct6798d/fan/3", Name: "Fan #4", SensorType: "Fan", Value: 0},
	},
}

func answer(req request) response {
	switch req.Command {
	case "list":
		var resp response
		for _, s := range req.Subsystems {
			if n, ok := tree[s]; ok {
				resp.Hardware = append(resp.Hardware, n)
			}
		}
		return resp
	case "update":
		s, ok := readings[req.Identifier]
		if !ok {
			return response{Error: "unknown hardware " + req.Identifier}
		}
		return response{Sensors: s}
	}
	return response{Error: "unknown command " + req.Command}
}

func write(resp response) {
	b, _ := json.Marshal(resp)
	fmt.Println(string(b))
}

func main() {
	mode := os.Getenv("FAKE_HELPER_MODE")
	if mode == "" {
		mode = "normal"
	}

	switch mode {
	case "open_fail":
		bufio.NewScanner(os.Stdin).Scan()
		write(response{Error: "computer.Open() failed: PawnIO driver not found"})
		os.Exit(1)
	case "slow":
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
		}
		os.Exit(0)
	}

	scanner := bufio.NewScanner(os.Stdin)
	count := 0
	for scanner.Scan() {
		count++

		var req request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			write(response{Error: "bad request"})
			continue
		}

		switch mode {
		case "crash":
			if count >= 2 {
				os.Exit(1)
			}
			write(answer(req))
		case "error":
			if count == 1 {
				write(answer(req))
				continue
			}
			write(response{Error: "sensor read failed"})
		default:
			write(answer(req))
		}
	}
}
