//go:build windows

package delivery

func NativeStrategy() Strategy {
	return &commandStrategy{name: "powershell", prog: "powershell.exe", args: powershellArgs, run: runCommand}
}
