package vkdefs

// Tid_t is a thread identifier: a dense small integer indexing the thread
// table (thrcore.Table).
type Tid_t int

// Pid_t is a process identifier: a dense small integer indexing the process
// table (proccore.Table).
type Pid_t int

// NTHR is the capacity of the thread table (spec 4.1: "fixed-size thread
// table (capacity N, e.g. 16)").
const NTHR = 16

// NPROC is the capacity of the process table (spec 4.4: "small fixed
// array").
const NPROC = 16

// MainTid and IdleTid are the two permanently-occupied thread-table slots,
// grounded on thread.c's MAIN_TID/IDLE_TID layout.
const (
	MainTid Tid_t = 0
	IdleTid Tid_t = NTHR - 1
)

// NFD is the number of descriptor slots in a process's descriptor table
// (spec 3: "fixed-size table mapping small integer descriptors (0..15)").
const NFD = 16
