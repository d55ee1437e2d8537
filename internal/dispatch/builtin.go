package dispatch

// NewBuiltinRegistry registers every module §4.9 requires: command,
// shell, package, service, debug, copy, file, wait_for. pkgMgr/svcMgr may
// be nil on a host with no configured adapter; the package/service
// modules then fail at execute time with a clear message rather than at
// registration time, since validate/check still need to run in dry runs
// that never reach a host lacking the adapter.
func NewBuiltinRegistry(pkgMgr PackageManager, svcMgr ServiceManager) *Registry {
	reg := NewRegistry()
	modules := []Module{
		NewCommandModule("command"),
		NewCommandModule("shell"),
		NewPackageModule(pkgMgr),
		NewServiceModule(svcMgr),
		NewDebugModule(),
		NewCopyModule(),
		NewFileModule(),
		NewWaitForModule(),
	}
	for _, mod := range modules {
		if err := reg.Register(mod); err != nil {
			panic(err) // programmer error: duplicate builtin module name
		}
	}
	return reg
}
