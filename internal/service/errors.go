package service

import "errors"

var ErrControllerClosed = errors.New("list controller closed")
