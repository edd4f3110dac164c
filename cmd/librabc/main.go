//go:build linux && cgo

// Command librabc builds the rabc C library:
//
//	go build -buildmode=c-shared -o librabc.so ./cmd/librabc
//
// The exported functions follow rabc.h. Strings and event arrays returned to
// the caller are allocated with malloc and must be released with
// rabc_cstring_free and rabc_events_free.
package main

/*
#include <stdint.h>
#include <stdlib.h>

struct rabc_client {
	uintptr_t handle;
};
*/
import "C"

import (
	"runtime/cgo"
	"unsafe"

	"rabc/internal/cabi"
)

func main() {}

//export rabc_client_new
func rabc_client_new(client **C.struct_rabc_client, log, errKind, errMsg **C.char) C.int {
	if client == nil || log == nil || errKind == nil || errMsg == nil {
		return C.int(cabi.StatusNullPointer)
	}
	*client = nil
	resetOutputs(log, errKind, errMsg)

	c, res := cabi.NewClient()
	writeResult(res, log, errKind, errMsg)
	if c != nil {
		box := (*C.struct_rabc_client)(C.malloc(C.sizeof_struct_rabc_client))
		box.handle = C.uintptr_t(cgo.NewHandle(c))
		*client = box
	}
	return C.int(res.Status)
}

//export rabc_client_poll
func rabc_client_poll(client *C.struct_rabc_client, waitTime C.uint32_t, events **C.uint64_t, eventCount *C.uint64_t, log, errKind, errMsg **C.char) C.int {
	if client == nil || events == nil || eventCount == nil || log == nil || errKind == nil || errMsg == nil {
		return C.int(cabi.StatusNullPointer)
	}
	*events = nil
	*eventCount = 0
	resetOutputs(log, errKind, errMsg)

	ids, res := lookup(client).Poll(uint32(waitTime))
	writeResult(res, log, errKind, errMsg)
	if len(ids) > 0 {
		buf := (*C.uint64_t)(C.malloc(C.size_t(len(ids)) * C.size_t(unsafe.Sizeof(C.uint64_t(0)))))
		out := unsafe.Slice(buf, len(ids))
		for i, id := range ids {
			out[i] = C.uint64_t(id)
		}
		*events = buf
		*eventCount = C.uint64_t(len(ids))
	}
	return C.int(res.Status)
}

//export rabc_client_process
func rabc_client_process(client *C.struct_rabc_client, event C.uint64_t, reply **C.char, log, errKind, errMsg **C.char) C.int {
	if client == nil || reply == nil || log == nil || errKind == nil || errMsg == nil {
		return C.int(cabi.StatusNullPointer)
	}
	*reply = nil
	resetOutputs(log, errKind, errMsg)

	text, res := lookup(client).Process(uint64(event))
	writeResult(res, log, errKind, errMsg)
	if text != "" {
		*reply = C.CString(text)
	}
	return C.int(res.Status)
}

//export rabc_client_free
func rabc_client_free(client *C.struct_rabc_client) {
	if client == nil {
		return
	}
	h := cgo.Handle(client.handle)
	_ = h.Value().(*cabi.Client).Close()
	h.Delete()
	C.free(unsafe.Pointer(client))
}

//export rabc_events_free
func rabc_events_free(events *C.uint64_t, eventCount C.uint64_t) {
	if events != nil {
		C.free(unsafe.Pointer(events))
	}
}

//export rabc_cstring_free
func rabc_cstring_free(cstring *C.char) {
	if cstring != nil {
		C.free(unsafe.Pointer(cstring))
	}
}

func lookup(client *C.struct_rabc_client) *cabi.Client {
	return cgo.Handle(client.handle).Value().(*cabi.Client)
}

func resetOutputs(log, errKind, errMsg **C.char) {
	*log = nil
	*errKind = nil
	*errMsg = nil
}

func writeResult(res cabi.Result, log, errKind, errMsg **C.char) {
	*log = C.CString(res.Log)
	if res.Status != cabi.StatusPass {
		*errKind = C.CString(res.ErrKind)
		*errMsg = C.CString(res.ErrMsg)
	}
}
