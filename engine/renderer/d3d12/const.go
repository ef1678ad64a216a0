package d3d12

/** @brief The maximum number of simultaneously bound textures per stage. */
const D3D12_MAX_TEXTURE_BINDINGS uint32 = 16

/** @brief The maximum number of simultaneously bound samplers per stage. */
const D3D12_MAX_SAMPLER_BINDINGS uint32 = 16

/** @brief The maximum number of simultaneously bound constant buffers. */
const D3D12_MAX_CBV_BINDINGS uint32 = 16

/** @brief The maximum number of simultaneously bound unordered-access views. */
const D3D12_MAX_UAV_BINDINGS uint32 = 16

/** @brief Required alignment of constant buffer view offsets, in bytes. */
const D3D12_CONSTANT_BUFFER_ALIGNMENT uint64 = 256

/** @brief The maximum size of a single constant buffer view, in bytes. */
const D3D12_MAX_CONSTANT_BUFFER_SIZE uint64 = 65536

/** @brief The initial capacity of each shader-visible descriptor heap. */
const D3D12_INITIAL_HEAP_CAPACITY uint32 = 1024
