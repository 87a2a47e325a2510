package httpclient_adapter

// ConfigureTimeouts applies the timeout options of a request to a client.
//
// A blanket Timeout wins over everything else and is applied to the connect, send and receive
// timeouts. Without it, OpenTimeout, WriteTimeout and ReadTimeout set the connect, send and receive
// timeouts respectively, each only when present. Fields without a matching option keep their
// current value.
func ConfigureTimeouts(c *Client, req RequestOptions) {
	if req.Timeout > 0 {
		c.SetConnectTimeout(req.Timeout)
		c.SetSendTimeout(req.Timeout)
		c.SetReceiveTimeout(req.Timeout)
		return
	}

	if req.OpenTimeout > 0 {
		c.SetConnectTimeout(req.OpenTimeout)
	}

	if req.WriteTimeout > 0 {
		c.SetSendTimeout(req.WriteTimeout)
	}

	if req.ReadTimeout > 0 {
		c.SetReceiveTimeout(req.ReadTimeout)
	}
}

// ConfigureTimeouts applies the timeout options of a request to a client. See the package level
// ConfigureTimeouts.
func (a *Adapter) ConfigureTimeouts(c *Client, req RequestOptions) {
	ConfigureTimeouts(c, req)
}
