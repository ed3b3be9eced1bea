package decode

import "github.com/ausocean/utils/logging"

func testLogger() logging.Logger {
	return logging.New(logging.Error, nil, true)
}
