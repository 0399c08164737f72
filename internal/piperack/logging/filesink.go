package logging

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// FileSinks opens one rotating log file per process from a template such as
// "logs/{name}.log", substituting {name}, {index}, and {time}. A blank
// template yields no sinks. A process whose log directory cannot be created
// gets no sink — a broken per-process log must never stop the run. The files
// themselves are opened lazily by lumberjack on first write.
func FileSinks(names []string, template string) map[string]*lumberjack.Logger {
	sinks := make(map[string]*lumberjack.Logger, len(names))
	if template == "" {
		return sinks
	}

	stamp := strconv.FormatInt(time.Now().Unix(), 10)
	for idx, name := range names {
		path := renderTemplate(template, name, idx, stamp)
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				continue
			}
		}
		sinks[name] = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			Compress:   false,
		}
	}
	return sinks
}

func renderTemplate(template, name string, index int, stamp string) string {
	r := strings.NewReplacer(
		"{name}", name,
		"{index}", strconv.Itoa(index),
		"{time}", stamp,
	)
	return r.Replace(template)
}
