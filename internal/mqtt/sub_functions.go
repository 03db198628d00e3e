package mqtt

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

const thermalZone = "/sys/class/thermal/thermal_zone0/temp"

// getTemperature reads the SoC temperature in Celsius. It returns 0 when the
// thermal zone is not available.
func getTemperature() float32 {
	contents, err := os.ReadFile(thermalZone)
	if err != nil {
		return 0
	}
	milli, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil {
		return 0
	}
	return float32(milli) / 1000.0
}

func formatUptime(seconds uint64) string {
	duration := time.Duration(seconds) * time.Second
	days := int(duration.Hours() / 24)
	hours := int(duration.Hours()) % 24
	minutes := int(duration.Minutes()) % 60
	secondsOnly := int(duration.Seconds()) % 60
	return fmt.Sprintf("%d days, %d hours, %d minutes, %d seconds", days, hours, minutes, secondsOnly)
}

// getIPAddress returns the first non-loopback IPv4 address, or "unknown".
func getIPAddress() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "unknown"
	}
	for _, address := range addrs {
		if ipnet, ok := address.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}
	return "unknown"
}
