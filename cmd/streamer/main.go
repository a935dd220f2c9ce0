// Package main запускает стример ЭЭГ - эмулятор гарнитуры, который
// генерирует окна сигнала, прогоняет их через локальный конвейер
// и отправляет на сервис мониторинга
package main

import (
	"fmt"
	"os"

	"neurodrive-service/cmd/streamer/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
