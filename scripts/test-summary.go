//go:build ignore

package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

var packages = []string{
	"./rdf",
	"./datatype",
	"./archive",
	"./ingest",
	"./imports",
	"./validation",
	"./config",
	"./internal/logging",
	"./runner",
	"./cmd/cimshacl",
}

func main() {
	args := []string{"test", "-v", "-count=1"}
	if len(os.Args) > 1 && os.Args[1] == "-race" {
		args = append(args, "-race")
	}

	fmt.Println("Test Summary")
	fmt.Println("=" + strings.Repeat("=", 60))
	fmt.Println()

	totalPass := 0
	totalFail := 0
	failed := false

	for _, pkg := range packages {
		cmd := exec.Command("go", append(args, pkg)...)
		output, err := cmd.CombinedOutput()
		outputStr := string(output)
		passCount := strings.Count(outputStr, "--- PASS:")
		failCount := strings.Count(outputStr, "--- FAIL:")
		if err != nil {
			failed = true
			if failCount == 0 {
				// build failures report no test lines
				failCount = 1
			}
		}

		totalPass += passCount
		totalFail += failCount

		fmt.Printf("%-20s: PASS=%4d  FAIL=%4d\n", pkg, passCount, failCount)
	}

	fmt.Println()
	fmt.Println("=" + strings.Repeat("=", 60))
	total := totalPass + totalFail
	var passRate float64
	if total > 0 {
		passRate = 100.0 * float64(totalPass) / float64(total)
	}
	fmt.Printf("TOTAL:               PASS=%4d  FAIL=%4d  Pass Rate=%.1f%%\n", totalPass, totalFail, passRate)
	if failed {
		os.Exit(1)
	}
}
