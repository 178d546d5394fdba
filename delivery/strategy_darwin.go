//go:build darwin

package delivery

func NativeStrategy() Strategy {
	return &commandStrategy{name: "osascript", prog: "osascript", args: osascriptArgs, run: runCommand}
}
