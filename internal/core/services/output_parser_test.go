package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipdock/backend/internal/core/services"
)

func TestOutputParserClassify(t *testing.T) {
	tests := map[string]struct {
		line        string
		wantNil     bool
		wantPercent int
		wantMessage string
	}{
		"sized download fraction": {
			line:        "45%|████████| 3.6MB/8.1MB",
			wantPercent: 45,
			wantMessage: "downloading 3.6MB/8.1MB (45%)",
		},
		"fraction without unit on first amount falls to bare percent": {
			line:        "45%|████████| 3.6/8.1MB",
			wantPercent: 45,
			wantMessage: "processing: 45%",
		},
		"collecting step": {
			line:        "Collecting numpy",
			wantPercent: 10,
			wantMessage: "collecting numpy",
		},
		"building step": {
			line:        "Building wheel for pandas (pyproject.toml)",
			wantPercent: 30,
			wantMessage: "building wheel",
		},
		"installing step": {
			line:        "Installing collected packages: numpy",
			wantPercent: 70,
			wantMessage: "installing collected",
		},
		"completion marker": {
			line:        "Successfully installed numpy-1.26.0",
			wantPercent: 100,
			wantMessage: "successfully installed numpy-1.26.0",
		},
		"requirement already satisfied": {
			line:        "Requirement already satisfied: requests in /usr/lib/python3",
			wantPercent: 50,
			wantMessage: "requirement already satisfied: requests",
		},
		"noise line": {
			line:    "Using cached numpy-1.26.0-cp311-manylinux.whl",
			wantNil: true,
		},
		"processing verb is consumed without progress": {
			line:    "Processing ./local-package.whl",
			wantNil: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			parser := services.NewOutputParser()
			sig := parser.Classify(tc.line)

			if tc.wantNil {
				assert.Nil(t, sig)
				return
			}

			require.NotNil(t, sig)
			assert.Equal(t, tc.wantPercent, sig.Percent)
			assert.Equal(t, tc.wantMessage, sig.Message)
		})
	}
}

func TestOutputParserBarePercentOnlyIncreases(t *testing.T) {
	parser := services.NewOutputParser()

	sig := parser.Classify("30%")
	require.NotNil(t, sig)
	assert.Equal(t, 30, sig.Percent)

	// A lower percent from a second progress bar must not move the
	// task backwards.
	assert.Nil(t, parser.Classify("10%"))
	assert.Equal(t, 30, parser.Highest())

	sig = parser.Classify("55%")
	require.NotNil(t, sig)
	assert.Equal(t, 55, sig.Percent)
}

func TestOutputParserCollectingIgnoredAfterDownload(t *testing.T) {
	parser := services.NewOutputParser()

	sig := parser.Classify("45%|████████| 3.6MB/8.1MB")
	require.NotNil(t, sig)
	assert.Equal(t, 45, sig.Percent)

	assert.Nil(t, parser.Classify("Collecting charset-normalizer"))
	assert.Equal(t, 45, parser.Highest())
}

func TestOutputParserStepFloorsNeverLower(t *testing.T) {
	parser := services.NewOutputParser()

	sig := parser.Classify("Installing collected packages: numpy")
	require.NotNil(t, sig)
	assert.Equal(t, 70, sig.Percent)

	sig = parser.Classify("Building wheel for numpy (pyproject.toml)")
	require.NotNil(t, sig)
	assert.Equal(t, 70, sig.Percent)
	assert.Equal(t, "building wheel", sig.Message)
}

func TestOutputParserInstallScenario(t *testing.T) {
	lines := []string{
		"Collecting numpy",
		"45%|████████| 3.6/8.1MB",
		"Successfully installed numpy-1.26.0",
	}
	want := []int{10, 45, 100}

	parser := services.NewOutputParser()
	var got []int
	for _, line := range lines {
		sig := parser.Classify(line)
		require.NotNil(t, sig, "line %q should carry progress", line)
		got = append(got, sig.Percent)
	}
	assert.Equal(t, want, got)
	assert.Equal(t, 100, parser.Highest())
}
