// secret-init imports key=value pairs from a .env file into the badger
// secret store used by the bot.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/betbot/signalbot/pkg/secretstore"
)

func main() {
	var (
		inPath    = flag.String("in", ".env", "input .env file path")
		dbPath    = flag.String("badger", getenv("SIGNALBOT_SECRET_DB", "data/secrets.badger"), "badger secrets db path")
		secretKey = flag.String("secret-key", getenv("SIGNALBOT_SECRET_KEY", ""), "badger encryption key (32 bytes base64/hex)")
		prefix    = flag.String("prefix", "env/", "key prefix inside badger")
	)
	flag.Parse()

	keyBytes, err := secretstore.ParseKey(*secretKey)
	if err != nil {
		fatal(err)
	}
	if keyBytes == nil {
		fatal(fmt.Errorf("secret key is required: set SIGNALBOT_SECRET_KEY or pass -secret-key"))
	}

	kv, err := parseDotEnvFile(*inPath)
	if err != nil {
		fatal(err)
	}

	ss, err := secretstore.Open(secretstore.OpenOptions{
		Path:          *dbPath,
		EncryptionKey: keyBytes,
	})
	if err != nil {
		fatal(err)
	}
	defer ss.Close()

	written := 0
	for k, v := range kv {
		if err := ss.SetString((*prefix)+k, v); err != nil {
			fatal(err)
		}
		written++
	}
	fmt.Fprintf(os.Stderr, "imported %d entries into %s (prefix %s)\n", written, *dbPath, *prefix)
}

func parseDotEnvFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	kv := map[string]string{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		v = strings.Trim(v, `"'`)
		kv[strings.TrimSpace(k)] = v
	}
	return kv, sc.Err()
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
