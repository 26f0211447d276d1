package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    ProviderBackend
		wantErr bool
	}{
		{"", CPUProviderBackend, false},
		{"cpu", CPUProviderBackend, false},
		{" CUDA ", CUDAProviderBackend, false},
		{"coreml", CoreMLProviderBackend, false},
		{"openvino", OpenVINOProviderBackend, false},
		{"tensorrt", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBackend(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOptionMaps(t *testing.T) {
	cuda := CUDAOptions{DeviceID: 1, GPUMemLimit: 2 << 30, CudnnConvAlgoSearch: "HEURISTIC", DoCopyInDefaultStream: true}
	assert.Equal(t, map[string]string{
		"device_id":                 "1",
		"do_copy_in_default_stream": "1",
		"gpu_mem_limit":             "2147483648",
		"cudnn_conv_algo_search":    "HEURISTIC",
	}, cuda.ToMap())

	assert.Empty(t, OpenVINOOptions{}.ToMap())
	assert.Equal(t, map[string]string{"device_type": "GPU", "num_of_threads": "4"},
		OpenVINOOptions{DeviceType: "GPU", NumOfThreads: 4}.ToMap())

	assert.Equal(t, uint32(0), CoreMLOptions{}.Flags())
	assert.Equal(t, uint32(0x005), CoreMLOptions{CPUOnly: true, RequireANE: true}.Flags())
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{Backend: "tpu"}.Validate())
	assert.Error(t, Config{Backend: CPUProviderBackend, Warmup: -1}.Validate())
	assert.Error(t, Config{Backend: CPUProviderBackend, IntraOpThreads: -2}.Validate())
}

func TestGetSharedLibPath(t *testing.T) {
	p, err := GetSharedLibPath("/opt/ort/libonnxruntime.so")
	require.NoError(t, err)
	assert.Equal(t, "/opt/ort/libonnxruntime.so", p)

	t.Setenv(SharedLibraryEnv, "/env/libonnxruntime.so")
	p, err = GetSharedLibPath("")
	require.NoError(t, err)
	assert.Equal(t, "/env/libonnxruntime.so", p)
}
