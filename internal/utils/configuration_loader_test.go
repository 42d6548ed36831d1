package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pypub/pypub/internal/utils"
)

const (
	testConfigurationNameConstant        = "config"
	testConfigurationTypeConstant        = "yaml"
	testEnvironmentPrefixConstant        = "PYPUBTEST"
	testConfigurationFileNameConstant    = "config.yaml"
	testConfigurationContentConstant     = "common:\n  log_level: debug\n"
	testEmbeddedConfigurationConstant    = "common:\n  log_level: warn\n  log_format: console\n"
	testDefaultLogFormatValueConstant    = "structured"
	testLogLevelDefaultKeyConstant       = "common.log_level"
	testLogFormatDefaultKeyConstant      = "common.log_format"
	testEnvironmentVariableNameConstant  = "PYPUBTEST_COMMON_LOG_LEVEL"
	testEnvironmentVariableValueConstant = "error"
)

type testLoaderConfiguration struct {
	Common struct {
		LogLevel  string `mapstructure:"log_level"`
		LogFormat string `mapstructure:"log_format"`
	} `mapstructure:"common"`
}

func TestConfigurationLoaderAppliesDefaults(testInstance *testing.T) {
	loader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, nil)

	var configuration testLoaderConfiguration
	defaultValues := map[string]any{
		testLogLevelDefaultKeyConstant:  "info",
		testLogFormatDefaultKeyConstant: testDefaultLogFormatValueConstant,
	}

	loadedConfiguration, loadError := loader.LoadConfiguration("", defaultValues, &configuration)
	require.NoError(testInstance, loadError)
	require.Empty(testInstance, loadedConfiguration.ConfigFileUsed)
	require.Equal(testInstance, "info", configuration.Common.LogLevel)
	require.Equal(testInstance, testDefaultLogFormatValueConstant, configuration.Common.LogFormat)
}

func TestConfigurationLoaderReadsConfigurationFile(testInstance *testing.T) {
	temporaryDirectory := testInstance.TempDir()
	configurationFilePath := filepath.Join(temporaryDirectory, testConfigurationFileNameConstant)
	require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte(testConfigurationContentConstant), 0o644))

	loader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{temporaryDirectory})

	var configuration testLoaderConfiguration
	defaultValues := map[string]any{
		testLogFormatDefaultKeyConstant: testDefaultLogFormatValueConstant,
	}

	loadedConfiguration, loadError := loader.LoadConfiguration(configurationFilePath, defaultValues, &configuration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, configurationFilePath, loadedConfiguration.ConfigFileUsed)
	require.Equal(testInstance, "debug", configuration.Common.LogLevel)
	require.Equal(testInstance, testDefaultLogFormatValueConstant, configuration.Common.LogFormat)
}

func TestConfigurationLoaderMergesEmbeddedConfiguration(testInstance *testing.T) {
	loader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, nil)
	loader.SetEmbeddedConfiguration([]byte(testEmbeddedConfigurationConstant), testConfigurationTypeConstant)

	var configuration testLoaderConfiguration
	_, loadError := loader.LoadConfiguration("", nil, &configuration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, "warn", configuration.Common.LogLevel)
	require.Equal(testInstance, "console", configuration.Common.LogFormat)
}

func TestConfigurationLoaderHonorsEnvironmentOverrides(testInstance *testing.T) {
	testInstance.Setenv(testEnvironmentVariableNameConstant, testEnvironmentVariableValueConstant)

	loader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, nil)

	var configuration testLoaderConfiguration
	defaultValues := map[string]any{
		testLogLevelDefaultKeyConstant: "info",
	}

	_, loadError := loader.LoadConfiguration("", defaultValues, &configuration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, testEnvironmentVariableValueConstant, configuration.Common.LogLevel)
}
