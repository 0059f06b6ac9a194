// Package kernel implements the core of an OSEK/VDX- and AUTOSAR-compliant
// static real-time kernel: fixed-priority preemptive scheduling with the
// Immediate Priority Ceiling Protocol, event-driven extended tasks, alarms
// and time-triggered schedule tables.
//
// Everything an application declares — tasks, counters, alarms, resources,
// events and schedule tables — is fixed at build time and handed to the
// kernel as a [Config]. Nothing in this package allocates or frees those
// entities at run time; they only move between states.
//
// The kernel core never touches hardware directly. It calls out through the
// [Arch] collaborator for context switches, interrupt masking and timer
// setup, and through [Hooks] for optional user callbacks. Both are supplied
// by whatever embeds the kernel — a real MCU board support package, or the
// deterministic simulator in cmd/sdvossim.
package kernel
