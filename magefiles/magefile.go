//go:build mage

package main

import (
	"fmt"
	"os/exec"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Dbup runs dbmate to apply db migrations
func Dbup() error {
	if _, err := exec.LookPath("dbmate"); err != nil {
		fmt.Println(">> dbmate not found; install with:")
		fmt.Println("   go install github.com/amacneil/dbmate@latest")
		return err
	}
	fmt.Println(">> dbmate up")
	return sh.Run("dbmate", "up")
}

// Build tidies deps then compiles to ./bin/aeat182.
func Build() error {
	mg.Deps(Tidy)
	fmt.Println(">> Building CLI binary...")
	return sh.Run("go", "build", "-o", "bin/aeat182", "./cmd/aeat182")
}

// Test runs the whole test suite.
func Test() error {
	fmt.Println(">> go test ./...")
	return sh.Run("go", "test", "./...")
}

// Tidy runs go mod tidy.
func Tidy() error {
	fmt.Println(">> go mod tidy")
	return sh.Run("go", "mod", "tidy")
}

// Lint runs go vet.
func Lint() error {
	fmt.Println(">> go vet ./...")
	return sh.Run("go", "vet", "./...")
}
