package kernel

import "github.com/sdvos-go/kernel/internal/klog"

// kernelOptions holds the run-time-selectable pieces of an otherwise
// statically configured kernel: which build variant (extended/standard)
// to run, the architecture collaborator, optional hooks and logger.
type kernelOptions struct {
	extended bool
	arch     Arch
	hooks    Hooks
	logger   klog.Logger
}

// Option configures a Kernel at construction time. There is no equivalent
// to reconfiguring a running kernel: like the rest of the entities it
// manages, a Kernel's build-time choices are fixed once New returns.
type Option interface {
	apply(*kernelOptions)
}

type optionFunc func(*kernelOptions)

func (f optionFunc) apply(o *kernelOptions) { f(o) }

// WithExtendedStatus selects the "extended" OSEK status build: every
// service validates the full precondition order (id, state, value)
// rather than only the ids whose corruption could break kernel
// state. The C original selects this with a compile-time #ifdef
// (OSEK_EXTENDED); Go has no preprocessor, so this is the run-time
// equivalent switch, read once at New and never changed.
func WithExtendedStatus() Option {
	return optionFunc(func(o *kernelOptions) { o.extended = true })
}

// WithArch supplies the architecture collaborator (context switch,
// interrupt masking, timer init). Required: New returns an error without
// one.
func WithArch(a Arch) Option {
	return optionFunc(func(o *kernelOptions) { o.arch = a })
}

// WithHooks registers the optional StartupHook/ShutdownHook/ErrorHook/
// PreTaskHook/PostTaskHook callbacks. Any left nil are simply not
// invoked.
func WithHooks(h Hooks) Option {
	return optionFunc(func(o *kernelOptions) { o.hooks = h })
}

// WithLogger attaches a structured logger used for ErrorHook tracing and
// service-error recording. Omitting this option leaves New's klog.Nop()
// default in place, so skipping it costs nothing on the kernel's hot
// path.
func WithLogger(l klog.Logger) Option {
	return optionFunc(func(o *kernelOptions) { o.logger = l })
}
