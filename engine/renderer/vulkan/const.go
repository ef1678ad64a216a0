package vulkan

/**
 * @brief The maximum number of command buffers which can simultaneously exist
 * in the immediate-commands pool; when all of them are in flight, acquisition
 * stalls until an existing buffer becomes available.
 */
const VULKAN_MAX_COMMAND_BUFFERS uint32 = 32

/**
 * @brief Max number of texture/sampler binding slots per encoder.
 */
const VULKAN_MAX_TEXTURE_BINDINGS uint32 = 16

/**
 * @brief Max number of buffer binding slots per encoder.
 */
const VULKAN_MAX_BUFFER_BINDINGS uint32 = 31

/**
 * @brief Capacity of the deferred-destruction queue.
 * @todo TODO: make configurable
 */
const VULKAN_MAX_DEFERRED_DESTRUCTIONS = 256
