//go:build mage

// Package main は mage 用のビルドターゲットです。
//
//	mage build   bin/ に api と taskctl をビルド
//	mage test    全テストを実行 (TEST_DB_DRIVER=mysql で MySQL を使用)
//	mage lint    go vet と golangci-lint
//	mage run     API サーバーを起動
//	mage clean   bin/ を削除
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binaryDir = "bin"

var binaries = map[string]string{
	"api":     "./cmd/api",
	"taskctl": "./cmd/taskctl",
}

// Build は bin/ にバイナリを作成します。
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	for name, pkg := range binaries {
		if err := sh.RunV("go", "build", "-o", filepath.Join(binaryDir, name), pkg); err != nil {
			return err
		}
	}
	return nil
}

// Test は全パッケージのテストを実行します。
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Lint は go vet と golangci-lint を実行します。
func Lint() error {
	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return err
	}
	return sh.RunV("golangci-lint", "run", "./...")
}

// Run はビルドしてから API サーバーを起動します。
func Run() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binaryDir, "api"))
}

// Clean はビルド成果物を削除します。
func Clean() error {
	return os.RemoveAll(binaryDir)
}
