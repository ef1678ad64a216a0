package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/igloo-gfx/igloo/engine/core"
	"github.com/igloo-gfx/igloo/engine/renderer/metadata"
)

// VulkanBuffer owns a native buffer and its backing memory allocation.
type VulkanBuffer struct {
	Handle      vk.Buffer
	Memory      vk.DeviceMemory
	TotalSize   vk.DeviceSize
	Usage       vk.BufferUsageFlags
	MemoryFlags vk.MemoryPropertyFlags

	// Mapped is non-nil while the memory is persistently mapped; only
	// host-visible buffers are mapped.
	Mapped unsafe.Pointer

	DebugName string
}

func bufferUsageFlags(usage metadata.BufferUsage) vk.BufferUsageFlags {
	var flags vk.BufferUsageFlags
	if usage&metadata.BufferUsageVertex != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	}
	if usage&metadata.BufferUsageIndex != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)
	}
	if usage&metadata.BufferUsageUniform != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	}
	if usage&metadata.BufferUsageStorage != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)
	}
	// every buffer can be a transfer target so staging uploads work
	return flags | vk.BufferUsageFlags(vk.BufferUsageTransferDstBit) | vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit)
}

// BufferCreate allocates a buffer and binds memory with the requested
// properties. Host-visible buffers are persistently mapped.
func BufferCreate(context *VulkanContext, size vk.DeviceSize, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags, debugName string) (*VulkanBuffer, error) {
	buffer := &VulkanBuffer{
		TotalSize:   size,
		Usage:       usage,
		MemoryFlags: memoryFlags,
		DebugName:   core.DebugName("buffer", debugName),
	}

	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Buffer
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create buffer `%s`: %s", buffer.DebugName, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	buffer.Handle = handle

	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer.Handle, &memoryRequirements)
	memoryRequirements.Deref()

	memoryType := context.FindMemoryIndex(memoryRequirements.MemoryTypeBits, uint32(memoryFlags))
	if memoryType == -1 {
		err := fmt.Errorf("required memory type not found; buffer `%s` not valid", buffer.DebugName)
		core.LogError(err.Error())
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &memory); res != vk.Success {
		err := fmt.Errorf("failed to allocate memory for buffer `%s`: %s", buffer.DebugName, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	buffer.Memory = memory

	if res := vk.BindBufferMemory(context.Device.LogicalDevice, buffer.Handle, buffer.Memory, 0); res != vk.Success {
		err := fmt.Errorf("failed to bind memory for buffer `%s`: %s", buffer.DebugName, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	if memoryFlags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0 {
		var mapped unsafe.Pointer
		if res := vk.MapMemory(context.Device.LogicalDevice, buffer.Memory, 0, size, 0, &mapped); res != vk.Success {
			err := fmt.Errorf("failed to map memory for buffer `%s`: %s", buffer.DebugName, VulkanResultString(res))
			core.LogError(err.Error())
			return nil, err
		}
		buffer.Mapped = mapped
	}

	return buffer, nil
}

// WriteAt copies data into a mapped buffer at the given offset.
func (vb *VulkanBuffer) WriteAt(data []byte, offset vk.DeviceSize) error {
	if vb.Mapped == nil {
		return fmt.Errorf("buffer `%s` is not host visible", vb.DebugName)
	}
	if offset+vk.DeviceSize(len(data)) > vb.TotalSize {
		return fmt.Errorf("write of %d bytes at offset %d overflows buffer `%s` of size %d", len(data), offset, vb.DebugName, vb.TotalSize)
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(vb.Mapped)+uintptr(offset))), len(data))
	copy(dst, data)
	return nil
}

// CopyTo records a buffer-to-buffer copy on the given command buffer.
func (vb *VulkanBuffer) CopyTo(cmdBuf vk.CommandBuffer, dst *VulkanBuffer, srcOffset, dstOffset, size vk.DeviceSize) {
	region := vk.BufferCopy{
		SrcOffset: srcOffset,
		DstOffset: dstOffset,
		Size:      size,
	}
	vk.CmdCopyBuffer(cmdBuf, vb.Handle, dst.Handle, 1, []vk.BufferCopy{region})
}

func (vb *VulkanBuffer) Destroy(context *VulkanContext) {
	if vb.Mapped != nil {
		vk.UnmapMemory(context.Device.LogicalDevice, vb.Memory)
		vb.Mapped = nil
	}
	if vb.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, vb.Memory, context.Allocator)
		vb.Memory = nil
	}
	if vb.Handle != nil {
		vk.DestroyBuffer(context.Device.LogicalDevice, vb.Handle, context.Allocator)
		vb.Handle = nil
	}
}
