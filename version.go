package main

import (
	"fmt"

	"github.com/dp-cache/filecache/internal/version"
)

// printVersion 输出 filecache 版本与提交信息。
func printVersion() {
	fmt.Fprintln(stdOut, version.Full())
}
