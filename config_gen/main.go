/*
Package main in the directory config_gen implements a tool to read configuration from a template,
and generate the configuration file of the server.
The generated configuration file particularly contains a random password for every participant.
*/
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

const passwordBytes = 8

func generatePassword() string {
	buf := make([]byte, passwordBytes)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}

func main() {

	viperRead := viper.New()
	// for environment variables
	viperRead.SetEnvPrefix("")
	viperRead.AutomaticEnv()
	replacer := strings.NewReplacer(".", "_")
	viperRead.SetEnvKeyReplacer(replacer)
	viperRead.SetConfigName("config_template")
	viperRead.AddConfigPath("./")
	err := viperRead.ReadInConfig()
	if err != nil {
		panic(err)
	}

	// participants is a list of names; each gets a fresh password
	participants := viperRead.GetStringSlice("participants")
	sort.Strings(participants)
	passwords := make(map[string]string, len(participants))
	for _, name := range participants {
		if _, ok := passwords[name]; ok {
			panic("participant " + name + " is listed twice")
		}
		if strings.ContainsAny(name, " \t") {
			panic("participant " + name + " contains whitespace")
		}
		passwords[name] = generatePassword()
	}

	// write to the configure file
	viperWrite := viper.New()
	viperWrite.SetConfigFile("config.yaml")
	viperWrite.Set("name", viperRead.GetString("name"))
	viperWrite.Set("listen_addr", viperRead.GetString("listen_addr"))
	viperWrite.Set("max_pool", viperRead.GetInt("max_pool"))
	viperWrite.Set("log_level", viperRead.GetInt("log_level"))
	viperWrite.Set("difficulty", viperRead.GetInt("difficulty"))
	viperWrite.Set("timeout", viperRead.GetInt("timeout"))
	viperWrite.Set("snapshot_path", viperRead.GetString("snapshot_path"))
	viperWrite.Set("participants", passwords)
	if err := viperWrite.WriteConfig(); err != nil {
		panic(err)
	}

	for _, name := range participants {
		fmt.Printf("%s: %s\n", name, passwords[name])
	}
}
