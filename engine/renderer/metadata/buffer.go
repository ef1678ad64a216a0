package metadata

type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageTransferSrc
	BufferUsageTransferDst
)

type BufferStorage int

const (
	// BufferStorageDeviceLocal lives in GPU memory; uploads go through staging.
	BufferStorageDeviceLocal BufferStorage = iota
	// BufferStorageHostVisible is CPU-mappable.
	BufferStorageHostVisible
)

// BufferDesc is the plain configuration object consumed by Device.CreateBuffer.
type BufferDesc struct {
	Size      uint64
	Usage     BufferUsage
	Storage   BufferStorage
	Data      []byte
	DebugName string
}
