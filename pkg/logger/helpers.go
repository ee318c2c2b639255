package logger

// LogRequest logs a completed HTTP request
func LogRequest(log Logger, method, url string, statusCode int, durationMs int64) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": durationMs,
	}

	switch {
	case statusCode >= 500:
		log.ErrorWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		log.WarnWithFields("HTTP request client error", fields)
	default:
		log.DebugWithFields("HTTP request completed", fields)
	}
}

// LogSearch logs one page of search results
func LogSearch(log Logger, query string, page, perPage, results int) {
	log.DebugWithFields("Search page fetched", map[string]interface{}{
		"query":    query,
		"page":     page,
		"per_page": perPage,
		"results":  results,
	})
}

// LogDownload logs the outcome of one image download
func LogDownload(log Logger, photoID int64, filename string, size int64, attempts int, err error) {
	fields := map[string]interface{}{
		"photo_id": photoID,
		"filename": filename,
		"attempts": attempts,
	}

	if err != nil {
		log.WithError(err).WarnWithFields("Download failed", fields)
		return
	}
	fields["bytes"] = size
	log.DebugWithFields("Download completed", fields)
}

// LogRateLimit logs the API quota reported by the server
func LogRateLimit(log Logger, remaining, limit string) {
	if remaining == "" {
		return
	}
	log.DebugWithFields("API quota", map[string]interface{}{
		"remaining": remaining,
		"limit":     limit,
	})
}

// NewNopLogger returns a Logger that discards everything
func NewNopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string)                                   {}
func (nopLogger) Info(string)                                    {}
func (nopLogger) Warn(string)                                    {}
func (nopLogger) Error(string)                                   {}
func (nopLogger) DebugWithFields(string, map[string]interface{}) {}
func (nopLogger) InfoWithFields(string, map[string]interface{})  {}
func (nopLogger) WarnWithFields(string, map[string]interface{})  {}
func (nopLogger) ErrorWithFields(string, map[string]interface{}) {}
func (n nopLogger) WithField(string, interface{}) Logger         { return n }
func (n nopLogger) WithFields(map[string]interface{}) Logger     { return n }
func (n nopLogger) WithError(error) Logger                       { return n }
